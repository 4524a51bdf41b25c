package gene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/molgenis/biobesu/internal/lookup"
)

// unknownGeneID marks an OMIM entry without an associated gene.
const unknownGeneID = "-"

// OmimRegistry maps OMIM identifiers to NCBI gene IDs.
type OmimRegistry struct {
	omimToGeneID lookup.Table
}

// LoadOmim reads a plain tab-separated OMIM to gene ID file.
func LoadOmim(path string) (*OmimRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open omim file: %w", err)
	}
	defer f.Close()

	return ParseOmim(f)
}

// ParseOmim reads rows of OMIM ID and gene ID. Rows whose gene ID is "-"
// are dropped.
func ParseOmim(r io.Reader) (*OmimRegistry, error) {
	reg := &OmimRegistry{omimToGeneID: make(lookup.Table)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimRight(scanner.Text(), " \t\r\n"), "\t")
		if len(fields) < 2 {
			continue
		}
		if fields[1] == unknownGeneID {
			continue
		}
		reg.omimToGeneID[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan omim file: %w", err)
	}

	return reg, nil
}

// Len returns the number of OMIM identifiers with a known gene.
func (r *OmimRegistry) Len() int {
	return len(r.omimToGeneID)
}

// OmimToGeneID returns the gene ID for an OMIM identifier.
func (r *OmimRegistry) OmimToGeneID(omim string) (string, bool) {
	return lookup.TranslateOne(r.omimToGeneID, omim)
}

// OmimsToGeneIDs translates OMIM identifiers to gene IDs.
func (r *OmimRegistry) OmimsToGeneIDs(omims []string, includeNA bool) ([]string, lookup.Missing) {
	return lookup.TranslateMany(r.omimToGeneID, omims, includeNA)
}
