// Package gene provides gene identifier registries: NCBI gene ID to HGNC
// symbol, gene alias to symbol and OMIM to gene ID.
package gene

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/molgenis/biobesu/internal/lookup"
)

// HGNC custom download, ordered by gene ID.
const (
	DownloadURL = "https://www.genenames.org/cgi-bin/download/custom?col=gd_pub_eg_id&col=gd_app_sym" +
		"&status=Approved&status=Entry%20Withdrawn&hgnc_dbtag=on&order_by=gd_pub_eg_id" +
		"&format=text&submit=submit"
	FileName       = "gene_ids_symbols.tsv"
	ExpectedHeader = "NCBI Gene ID\tApproved symbol"
)

var (
	// ErrUnexpectedHeader is returned when the gene file header does not
	// match ExpectedHeader.
	ErrUnexpectedHeader = errors.New("unexpected gene info file header")

	// ErrDuplicateSymbol is returned when a symbol is assigned to more than
	// one gene ID.
	ErrDuplicateSymbol = errors.New("duplicate gene symbol")
)

// Registry maps NCBI gene IDs to approved symbols and back.
// It is not modified after loading.
type Registry struct {
	idToSymbol lookup.Table
	symbolToID lookup.Table
}

// FilePath returns the path of the gene file inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, FileName)
}

// LoadRegistry loads the gene file from dir. If the file does not exist yet
// it is retrieved from DownloadURL with fetcher first.
func LoadRegistry(ctx context.Context, dir string, fetcher Fetcher) (*Registry, error) {
	return LoadRegistryFrom(ctx, dir, DownloadURL, fetcher)
}

// LoadRegistryFrom is LoadRegistry with a custom download URL.
func LoadRegistryFrom(ctx context.Context, dir, url string, fetcher Fetcher) (*Registry, error) {
	path := FilePath(dir)

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat gene file: %w", err)
		}
		if fetcher == nil {
			return nil, fmt.Errorf("gene file %s not found and no fetcher configured", path)
		}
		if err := fetcher.Fetch(ctx, url, path); err != nil {
			return nil, fmt.Errorf("fetch gene file: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene file: %w", err)
	}
	defer f.Close()

	return ParseRegistry(f)
}

// ParseRegistry reads a two-column gene file whose first line must equal
// ExpectedHeader. Rows without a gene ID are ignored.
func ParseRegistry(r io.Reader) (*Registry, error) {
	reg := &Registry{
		idToSymbol: make(lookup.Table),
		symbolToID: make(lookup.Table),
	}

	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read gene file header: %w", err)
		}
		return nil, fmt.Errorf("%w: empty file", ErrUnexpectedHeader)
	}
	if header := strings.TrimRight(scanner.Text(), " \t\r\n"); header != ExpectedHeader {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrUnexpectedHeader, ExpectedHeader, header)
	}

	for scanner.Scan() {
		fields := strings.Split(strings.TrimRight(scanner.Text(), " \t\r\n"), "\t")
		for len(fields) < 2 {
			fields = append(fields, "")
		}

		id, symbol := fields[0], fields[1]
		if id == "" {
			continue
		}

		if existing, ok := reg.symbolToID[symbol]; ok && existing != id {
			return nil, fmt.Errorf("%w: %s already assigned to %s, found again for %s",
				ErrDuplicateSymbol, symbol, existing, id)
		}
		reg.symbolToID[symbol] = id
		reg.idToSymbol[id] = symbol
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gene file: %w", err)
	}

	return reg, nil
}

// Len returns the number of gene IDs.
func (r *Registry) Len() int {
	return len(r.idToSymbol)
}

// IDToSymbol returns the symbol for a gene ID.
func (r *Registry) IDToSymbol(id string) (string, bool) {
	return lookup.TranslateOne(r.idToSymbol, id)
}

// IDsToSymbols translates gene IDs to symbols.
func (r *Registry) IDsToSymbols(ids []string, includeNA bool) ([]string, lookup.Missing) {
	return lookup.TranslateMany(r.idToSymbol, ids, includeNA)
}

// SymbolToID returns the gene ID for a symbol.
func (r *Registry) SymbolToID(symbol string) (string, bool) {
	return lookup.TranslateOne(r.symbolToID, symbol)
}

// SymbolsToIDs translates symbols to gene IDs.
func (r *Registry) SymbolsToIDs(symbols []string, includeNA bool) ([]string, lookup.Missing) {
	return lookup.TranslateMany(r.symbolToID, symbols, includeNA)
}
