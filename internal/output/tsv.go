// Package output writes aggregated per-case result files.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Column names of the aggregated files.
const (
	ColumnID          = "id"
	ColumnGeneAliases = "gene_aliases"
	ColumnOmim        = "omim"
	ColumnGeneID      = "gene_id"
	ColumnGeneSymbol  = "gene_symbol"
)

// valueSeparator joins the values of one case.
const valueSeparator = ","

// File pairs an aggregated file name with its value column.
type File struct {
	Name   string
	Column string
}

// Aggregated files written by a benchmark run.
var (
	GeneAliasesFile = File{Name: "gene_aliases.tsv", Column: ColumnGeneAliases}
	OmimsFile       = File{Name: "omims.tsv", Column: ColumnOmim}
	GeneIDsFile     = File{Name: "gene_ids.tsv", Column: ColumnGeneID}
	GeneSymbolsFile = File{Name: "gene_symbols.tsv", Column: ColumnGeneSymbol}
)

// TSVWriter writes one row per case: the case ID and a comma-separated
// value list, under a fixed "id\t<column>" header.
type TSVWriter struct {
	w      *bufio.Writer
	column string
}

// NewTSVWriter creates a writer for the given value column.
func NewTSVWriter(w io.Writer, column string) *TSVWriter {
	return &TSVWriter{
		w:      bufio.NewWriter(w),
		column: column,
	}
}

// Column returns the name of the value column.
func (tw *TSVWriter) Column() string {
	return tw.column
}

// WriteHeader writes the header line.
func (tw *TSVWriter) WriteHeader() error {
	_, err := tw.w.WriteString(ColumnID + "\t" + tw.column + "\n")
	return err
}

// Write writes the values of a single case.
func (tw *TSVWriter) Write(caseID string, values []string) error {
	_, err := tw.w.WriteString(caseID + "\t" + strings.Join(values, valueSeparator) + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TSVWriter) Flush() error {
	return tw.w.Flush()
}

// FileSet is a group of TSV files created in one directory, keyed by column.
type FileSet struct {
	files   []*os.File
	writers map[string]*TSVWriter
}

// CreateFileSet creates every file in dir and writes the headers. Existing
// files are truncated.
func CreateFileSet(dir string, files ...File) (*FileSet, error) {
	fs := &FileSet{writers: make(map[string]*TSVWriter, len(files))}

	for _, file := range files {
		f, err := os.Create(filepath.Join(dir, file.Name))
		if err != nil {
			fs.Close()
			return nil, fmt.Errorf("create output file: %w", err)
		}
		fs.files = append(fs.files, f)

		tw := NewTSVWriter(f, file.Column)
		if err := tw.WriteHeader(); err != nil {
			fs.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		fs.writers[file.Column] = tw
	}

	return fs, nil
}

// Write writes a row to the file for column.
func (fs *FileSet) Write(column, caseID string, values []string) error {
	tw, ok := fs.writers[column]
	if !ok {
		return fmt.Errorf("no output file for column %q", column)
	}
	return tw.Write(caseID, values)
}

// Close flushes and closes all files, returning every error encountered.
func (fs *FileSet) Close() error {
	var err error
	for _, tw := range fs.writers {
		err = multierr.Append(err, tw.Flush())
	}
	for _, f := range fs.files {
		err = multierr.Append(err, f.Close())
	}
	return err
}
