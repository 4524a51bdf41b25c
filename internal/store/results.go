package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Run describes one benchmark run.
type Run struct {
	ID        string
	Tool      string
	Mode      string
	OutputDir string
	Started   time.Time
	Finished  time.Time
	Cases     int
	Succeeded int
	Failed    int
}

// GeneResult is a single ranked gene of one case. Extracted holds the value
// read from the tool output (alias or OMIM number).
type GeneResult struct {
	CaseID     string
	Rank       int
	Extracted  string
	GeneID     string
	GeneSymbol string
}

// WriteRun inserts or replaces the run record.
func (s *Store) WriteRun(r Run) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Tool, r.Mode, r.OutputDir, r.Started.UTC(), r.Finished.UTC(), r.Cases, r.Succeeded, r.Failed)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `run_id, tool, mode, output_dir, started, finished, cases, succeeded, failed`

// LookupRun returns a run by ID, or nil when it does not exist.
func (s *Store) LookupRun(runID string) (*Run, error) {
	runs, err := s.queryRuns(`SELECT `+runColumns+` FROM runs WHERE run_id=?`, runID)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// LatestRun returns the most recently finished run written to outputDir, or
// nil when there is none.
func (s *Store) LatestRun(outputDir string) (*Run, error) {
	runs, err := s.queryRuns(`SELECT `+runColumns+` FROM runs WHERE output_dir=?
		ORDER BY finished DESC LIMIT 1`, outputDir)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// Runs returns every recorded run, most recent first.
func (s *Store) Runs() ([]Run, error) {
	return s.queryRuns(`SELECT ` + runColumns + ` FROM runs ORDER BY started DESC`)
}

func (s *Store) queryRuns(query string, args ...any) ([]Run, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Tool, &r.Mode, &r.OutputDir, &r.Started, &r.Finished,
			&r.Cases, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// WriteGeneResults batch-inserts the gene results of a run using the
// Appender API.
func (s *Store) WriteGeneResults(runID string, results []GeneResult) error {
	if len(results) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "cases")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range results {
		if err := appender.AppendRow(
			runID, r.CaseID, int32(r.Rank), r.Extracted, r.GeneID, r.GeneSymbol,
		); err != nil {
			return fmt.Errorf("append gene result: %w", err)
		}
	}

	return appender.Flush()
}

// LookupCase returns the ranked genes of a case within a run.
func (s *Store) LookupCase(runID, caseID string) ([]GeneResult, error) {
	rows, err := s.db.Query(`SELECT case_id, rank, extracted, gene_id, gene_symbol
		FROM cases WHERE run_id=? AND case_id=? ORDER BY rank`, runID, caseID)
	if err != nil {
		return nil, fmt.Errorf("query case: %w", err)
	}
	defer rows.Close()

	return scanGeneResults(rows)
}

// SearchByGene returns every case of a run whose ranking contains the gene
// symbol, ordered by case and rank.
func (s *Store) SearchByGene(runID, symbol string) ([]GeneResult, error) {
	rows, err := s.db.Query(`SELECT case_id, rank, extracted, gene_id, gene_symbol
		FROM cases WHERE run_id=? AND gene_symbol=? ORDER BY case_id, rank`, runID, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanGeneResults(rows)
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(runID string) error {
	for _, table := range []string{"cases", "reference_files", "runs"} {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE run_id=?", runID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func scanGeneResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]GeneResult, error) {
	var results []GeneResult
	for rows.Next() {
		var r GeneResult
		if err := rows.Scan(&r.CaseID, &r.Rank, &r.Extracted, &r.GeneID, &r.GeneSymbol); err != nil {
			return nil, fmt.Errorf("scan gene result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene results: %w", err)
	}
	return results, nil
}
