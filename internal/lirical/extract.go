// Package lirical runs LIRICAL and extracts predicted genes from its TSV
// output.
package lirical

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Column indices in a LIRICAL TSV result row.
const (
	colDiseaseName  = 1
	colDiseaseCurie = 2
)

// commentPrefix starts the metadata lines at the top of a result file.
const commentPrefix = "!"

// diseaseGene matches a disease label ending in "; <GENE>", e.g.
// "MYDISEASE 12; ABC1".
var diseaseGene = regexp.MustCompile(`^[\w, ]+; ([\w.-]+)$`)

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// Omim also collects the OMIM number of every row.
	Omim bool
}

// Extraction holds the values pulled from one result file, in row order.
// Duplicates are kept.
type Extraction struct {
	Genes []string
	Omims []string
}

// Extract reads a LIRICAL TSV result. Comment lines and the header are
// skipped. Rows whose disease label carries no gene contribute no gene.
// With opts.Omim set, a row without a disease identifier column is a
// *FormatError.
func Extract(r io.Reader, opts ExtractOptions) (*Extraction, error) {
	ex := &Extraction{Genes: []string{}}
	if opts.Omim {
		ex.Omims = []string{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNumber := 0
	headerSeen := false
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		if strings.HasPrefix(line, commentPrefix) {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")

		if len(fields) > colDiseaseName {
			if m := diseaseGene.FindStringSubmatch(fields[colDiseaseName]); m != nil {
				ex.Genes = append(ex.Genes, m[1])
			}
		}

		if opts.Omim {
			omim, err := parseOmim(fields)
			if err != nil {
				return nil, &FormatError{Line: lineNumber, Message: err.Error()}
			}
			ex.Omims = append(ex.Omims, omim)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lirical result: %w", err)
	}

	return ex, nil
}

// ExtractLines is Extract over already split lines.
func ExtractLines(lines []string, opts ExtractOptions) (*Extraction, error) {
	return Extract(strings.NewReader(strings.Join(lines, "\n")), opts)
}

// ExtractFile runs Extract on the result file at path.
func ExtractFile(path string, opts ExtractOptions) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lirical result: %w", err)
	}
	defer f.Close()

	return Extract(f, opts)
}

// parseOmim returns the number of a disease identifier such as
// "OMIM:123456".
func parseOmim(fields []string) (string, error) {
	if len(fields) <= colDiseaseCurie {
		return "", fmt.Errorf("expected at least %d columns, found %d", colDiseaseCurie+1, len(fields))
	}

	curie := strings.TrimSpace(fields[colDiseaseCurie])
	_, id, ok := strings.Cut(curie, ":")
	if !ok || id == "" {
		return "", fmt.Errorf("malformed disease identifier %q", curie)
	}
	return id, nil
}

// FormatError reports a LIRICAL result row that does not have the expected
// layout.
type FormatError struct {
	Line    int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("lirical result format error at line %d: %s", e.Line, e.Message)
}
