package gene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/molgenis/biobesu/internal/lookup"
)

// Column indices in the gene alias file (NCBI gene_info layout).
const (
	aliasColSymbol   = 2
	aliasColSynonyms = 4
)

// AliasRegistry maps gene aliases to symbols. Several aliases may point to
// the same symbol; when an alias occurs more than once the last row wins.
type AliasRegistry struct {
	aliasToSymbol lookup.Table
}

// LoadAliases reads a gzip-compressed (or plain) tab-separated alias file.
func LoadAliases(path string) (*AliasRegistry, error) {
	rc, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("open alias file: %w", err)
	}
	defer rc.Close()

	return ParseAliases(rc)
}

// ParseAliases reads alias rows: column 3 holds the symbol and column 5 a
// "|"-separated alias list ("-" when there are none). Comment lines and
// shorter rows are skipped.
func ParseAliases(r io.Reader) (*AliasRegistry, error) {
	reg := &AliasRegistry{aliasToSymbol: make(lookup.Table)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) <= aliasColSynonyms {
			continue
		}

		symbol := fields[aliasColSymbol]
		for _, alias := range strings.Split(fields[aliasColSynonyms], "|") {
			if alias == "" || alias == "-" {
				continue
			}
			reg.aliasToSymbol[alias] = symbol
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan alias file: %w", err)
	}

	return reg, nil
}

// Len returns the number of aliases.
func (r *AliasRegistry) Len() int {
	return len(r.aliasToSymbol)
}

// AliasToSymbol returns the symbol for a gene alias.
func (r *AliasRegistry) AliasToSymbol(alias string) (string, bool) {
	return lookup.TranslateOne(r.aliasToSymbol, alias)
}

// AliasesToSymbols translates gene aliases to symbols.
func (r *AliasRegistry) AliasesToSymbols(aliases []string, includeNA bool) ([]string, lookup.Missing) {
	return lookup.TranslateMany(r.aliasToSymbol, aliases, includeNA)
}

// gzipFile closes both the gzip stream and the underlying file.
type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// openMaybeGzip opens path, transparently decompressing it when it starts
// with the gzip magic number.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek file: %w", err)
	}

	// gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &gzipFile{Reader: gz, file: file}, nil
	}

	return file, nil
}
