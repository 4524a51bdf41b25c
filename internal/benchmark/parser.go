// Package benchmark reads benchmark case tables.
package benchmark

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column indices in the benchmark table. Other columns (such as the
// expected gene) are ignored.
const (
	colCaseID     = 0
	colPhenotypes = 2
)

var (
	// ErrInvalidCaseID is returned for a case ID that cannot name the
	// per-case output files.
	ErrInvalidCaseID = errors.New("invalid case ID")
	// ErrDuplicateCase is returned when a case ID occurs more than once.
	ErrDuplicateCase = errors.New("duplicate case ID")
)

// Case is one benchmark row: an ID and the phenotypes observed for it.
type Case struct {
	ID           string
	PhenotypeIDs []string
}

// Parser reads cases from a tab-separated benchmark file whose first line is
// a header.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	lineNumber int
}

// NewParser opens the benchmark file at path.
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark file: %w", err)
	}

	p := &Parser{reader: bufio.NewReader(file), file: file}
	if err := p.skipHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.skipHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) skipHeader() error {
	_, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read header: %w", err)
	}
	p.lineNumber++
	return nil
}

// Next reads the next case.
// Returns nil, nil when there are no more cases.
func (p *Parser) Next() (*Case, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read case line: %w", err)
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) <= colPhenotypes {
			return nil, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("expected at least %d columns, found %d", colPhenotypes+1, len(fields)),
			}
		}

		id := strings.TrimSpace(fields[colCaseID])
		if err := CheckID(id); err != nil {
			return nil, &ParseError{Line: p.lineNumber, Message: err.Error(), Err: err}
		}

		return &Case{ID: id, PhenotypeIDs: splitPhenotypes(fields[colPhenotypes])}, nil
	}
}

// ReadAll reads all remaining cases. A case ID seen before is a
// *ParseError wrapping ErrDuplicateCase.
func (p *Parser) ReadAll() ([]Case, error) {
	var cases []Case
	seen := make(map[string]int)
	for {
		c, err := p.Next()
		if err != nil {
			return nil, err
		}
		if c == nil {
			return cases, nil
		}
		if first, ok := seen[c.ID]; ok {
			return nil, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("%v %q, first seen at line %d", ErrDuplicateCase, c.ID, first),
				Err:     ErrDuplicateCase,
			}
		}
		seen[c.ID] = p.lineNumber
		cases = append(cases, *c)
	}
}

// CheckID reports an error for an ID that is empty or would escape the
// output directory when used as a file name.
func CheckID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidCaseID)
	case strings.ContainsAny(id, `/\`) || strings.Contains(id, ".."):
		return fmt.Errorf("%w %q: contains a path element", ErrInvalidCaseID, id)
	}
	return nil
}

// CheckCases validates every case ID and rejects repeats. Cases are
// numbered from 1 in the errors.
func CheckCases(cases []Case) error {
	seen := make(map[string]int, len(cases))
	for i, c := range cases {
		if err := CheckID(c.ID); err != nil {
			return fmt.Errorf("case %d: %w", i+1, err)
		}
		if first, ok := seen[c.ID]; ok {
			return fmt.Errorf("%w %q: cases %d and %d", ErrDuplicateCase, c.ID, first, i+1)
		}
		seen[c.ID] = i + 1
	}
	return nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the underlying file, if any.
func (p *Parser) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ReadFile reads all cases from the benchmark file at path.
func ReadFile(path string) ([]Case, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.ReadAll()
}

func splitPhenotypes(field string) []string {
	var ids []string
	for _, id := range strings.Split(field, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ParseError represents an error during benchmark parsing with line context.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("benchmark parse error at line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
