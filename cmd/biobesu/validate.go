package main

import (
	"os"
	"path/filepath"
	"strings"
)

// checkFile reports a usage error when path is not an existing regular file
// with the expected extension. An empty ext accepts any extension.
func checkFile(path, ext string) error {
	name := filepath.Base(path)
	if path == "" {
		return usagef("no file given")
	}
	if ext != "" && !strings.HasSuffix(path, ext) {
		return usagef("%q is not a %s file", name, ext)
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return usagef("%q is not an existing file", name)
	}
	return nil
}

// checkDir strips trailing slashes from path and reports a usage error when
// it is not an existing directory.
func checkDir(path string) (string, error) {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	info, err := os.Stat(path)
	if path == "" || err != nil || !info.IsDir() {
		return "", usagef("%q is not a valid directory", filepath.Base(path))
	}
	return path, nil
}
