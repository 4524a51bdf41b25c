// Package pipeline runs a benchmark end to end: it encodes every case as a
// phenopacket, invokes LIRICAL per case, extracts the ranked genes and
// converts them into gene IDs and symbols.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/molgenis/biobesu/internal/benchmark"
	"github.com/molgenis/biobesu/internal/gene"
	"github.com/molgenis/biobesu/internal/hpo"
	"github.com/molgenis/biobesu/internal/lirical"
	"github.com/molgenis/biobesu/internal/lookup"
	"github.com/molgenis/biobesu/internal/output"
	"github.com/molgenis/biobesu/internal/phenopacket"
	"github.com/molgenis/biobesu/internal/store"
)

// ToolName identifies the prioritization tool in stored runs.
const ToolName = "lirical"

// ErrOutputExists is returned when the phenopacket directory already holds
// files and the run is configured to abort.
var ErrOutputExists = errors.New("output already exists")

// References holds the loaded lookup sources. Aliases is required in alias
// mode, Omim in omim mode.
type References struct {
	Ontology *hpo.Ontology
	Genes    *gene.Registry
	Aliases  *gene.AliasRegistry
	Omim     *gene.OmimRegistry
}

// Row is one ranked gene of a case.
type Row struct {
	Rank       int    // 1-based position in the extracted list
	Extracted  string // alias or OMIM number as read from the tool output
	GeneID     string
	GeneSymbol string
}

// CaseResult is the converted ranking of a case.
type CaseResult struct {
	CaseID    string
	Extracted []string
	Rows      []Row
	Missing   lookup.Missing
}

// CaseFailure records a case that produced no ranking.
type CaseFailure struct {
	CaseID string
	Err    error
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID     string
	Cases     int
	Succeeded int
	Failed    []CaseFailure
	// Missing holds every extracted value or intermediate symbol that
	// could not be converted.
	Missing lookup.Missing
	// Stale lists reference files that changed since the previous stored
	// run into the same output directory. Only checked when reusing output.
	Stale []store.FileFingerprint
}

// Pipeline runs benchmark cases through LIRICAL.
type Pipeline struct {
	cfg     Config
	refs    References
	invoker lirical.Invoker

	store      *store.Store
	references []store.FileFingerprint
	clock      func() time.Time
	logger     *zap.Logger
}

// New creates a pipeline.
func New(cfg Config, refs References, invoker lirical.Invoker) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		refs:    refs,
		invoker: invoker,
		clock:   time.Now,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and per-case failures.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// SetClock sets the time source used for phenopacket creation times.
func (p *Pipeline) SetClock(clock func() time.Time) {
	p.clock = clock
}

// SetStore enables persisting results. The fingerprints describe the input
// files the run is computed from.
func (p *Pipeline) SetStore(s *store.Store, references []store.FileFingerprint) {
	p.store = s
	p.references = references
}

// PhenopacketDir returns the directory phenopackets are written to.
func (p *Pipeline) PhenopacketDir() string {
	return filepath.Join(p.cfg.OutputDir, PhenopacketDir)
}

// ResultDir returns the directory LIRICAL writes its results to.
func (p *Pipeline) ResultDir() string {
	return filepath.Join(p.cfg.OutputDir, ResultDir)
}

// Run processes all cases. Failing cases are logged and listed in the
// summary; an error is only returned for faults that stop the whole run.
func (p *Pipeline) Run(ctx context.Context, cases []benchmark.Case) (*Summary, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := benchmark.CheckCases(cases); err != nil {
		return nil, err
	}

	started := p.clock()
	summary := &Summary{
		RunID:   store.NewRunID(),
		Cases:   len(cases),
		Missing: make(lookup.Missing),
	}

	if err := p.prepare(); err != nil {
		return nil, err
	}
	if p.cfg.OnExisting == PolicyReuse {
		stale, err := p.staleReferences()
		if err != nil {
			return nil, err
		}
		summary.Stale = stale
	}

	paths, err := p.encodeAll(cases)
	if err != nil {
		return nil, err
	}

	files, err := output.CreateFileSet(p.cfg.OutputDir, p.outputFiles()...)
	if err != nil {
		return nil, err
	}

	var stored []store.GeneResult
	items := feed(ctx, cases, paths)
	results := p.processParallel(ctx, items, p.cfg.Workers)
	collectErr := OrderedCollect(results, func(r WorkResult) error {
		if r.Err != nil {
			p.logger.Warn("case failed",
				zap.String("case_id", r.CaseID),
				zap.Error(r.Err))
			summary.Failed = append(summary.Failed, CaseFailure{CaseID: r.CaseID, Err: r.Err})
			return nil
		}

		summary.Succeeded++
		summary.Missing.Merge(r.Result.Missing)
		if p.store != nil {
			for _, row := range r.Result.Rows {
				stored = append(stored, store.GeneResult{
					CaseID:     r.CaseID,
					Rank:       row.Rank,
					Extracted:  row.Extracted,
					GeneID:     row.GeneID,
					GeneSymbol: row.GeneSymbol,
				})
			}
		}
		return p.writeResult(files, r.Result)
	})
	if err := files.Close(); err != nil && collectErr == nil {
		collectErr = fmt.Errorf("close output files: %w", err)
	}
	if collectErr != nil {
		return nil, fmt.Errorf("write results: %w", collectErr)
	}

	if err := p.persist(summary, stored, started); err != nil {
		return nil, err
	}

	p.logger.Info("benchmark finished",
		zap.String("run_id", summary.RunID),
		zap.Int("cases", summary.Cases),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("missing", summary.Missing.Len()))

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("benchmark interrupted: %w", err)
	}
	return summary, nil
}

func (p *Pipeline) validate() error {
	if err := p.cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if p.invoker == nil {
		return fmt.Errorf("no lirical invoker")
	}
	if p.refs.Ontology == nil || p.refs.Genes == nil {
		return fmt.Errorf("ontology and gene registry are required")
	}
	if p.cfg.Mode == ModeAlias && p.refs.Aliases == nil {
		return fmt.Errorf("alias mode requires an alias registry")
	}
	if p.cfg.Mode == ModeOmim && p.refs.Omim == nil {
		return fmt.Errorf("omim mode requires an omim registry")
	}
	return nil
}

// prepare creates the output directories, applying the existing output policy.
func (p *Pipeline) prepare() error {
	dir := p.PhenopacketDir()
	entries, err := os.ReadDir(dir)
	switch {
	case err == nil && len(entries) > 0:
		if p.cfg.OnExisting != PolicyReuse {
			return fmt.Errorf("%w: %s", ErrOutputExists, dir)
		}
		p.logger.Warn("reusing existing output", zap.String("dir", dir))
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read phenopacket directory: %w", err)
	}

	for _, d := range []string{dir, p.ResultDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

// staleReferences compares the reference files of the previous stored run
// into the output directory with the files on disk.
func (p *Pipeline) staleReferences() ([]store.FileFingerprint, error) {
	if p.store == nil {
		return nil, nil
	}

	prev, err := p.store.LatestRun(p.cfg.OutputDir)
	if err != nil || prev == nil {
		return nil, err
	}
	stale, err := p.store.StaleReferences(prev.ID)
	if err != nil {
		return nil, fmt.Errorf("check reference files: %w", err)
	}
	for _, f := range stale {
		p.logger.Warn("reference file changed since previous run",
			zap.String("run_id", prev.ID),
			zap.String("role", f.Role),
			zap.String("path", f.Path))
	}
	return stale, nil
}

// encodeAll writes a phenopacket for every case before any tool runs, so an
// unknown phenotype stops the run early.
func (p *Pipeline) encodeAll(cases []benchmark.Case) ([]string, error) {
	dir := p.PhenopacketDir()
	created := p.clock()
	paths := make([]string, len(cases))
	reused := 0

	for i, c := range cases {
		path := filepath.Join(dir, phenopacket.FileName(c.ID))
		if p.cfg.OnExisting == PolicyReuse && fileExists(path) {
			paths[i] = path
			reused++
			continue
		}

		pp, err := phenopacket.Encode(c, p.refs.Ontology, p.refs.Ontology.Version, created)
		if err != nil {
			return nil, err
		}
		if paths[i], err = phenopacket.WriteFile(dir, pp); err != nil {
			return nil, err
		}
	}

	p.logger.Info("phenopackets ready",
		zap.Int("written", len(cases)-reused),
		zap.Int("reused", reused))
	return paths, nil
}

// processCase runs the tool for one case and converts its output.
func (p *Pipeline) processCase(ctx context.Context, item WorkItem) (*CaseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	caseID := item.Case.ID
	resultPath := lirical.ResultPath(p.ResultDir(), caseID)

	if p.cfg.OnExisting == PolicyReuse && fileExists(resultPath) {
		p.logger.Debug("reusing lirical result", zap.String("case_id", caseID))
	} else {
		invokeCtx := ctx
		if p.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			invokeCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()
		}
		req := lirical.Request{
			CaseID:          caseID,
			PhenopacketPath: item.PhenopacketPath,
			OutputDir:       p.ResultDir(),
		}
		if err := p.invoker.Invoke(invokeCtx, req); err != nil {
			return nil, err
		}
	}

	ex, err := lirical.ExtractFile(resultPath, lirical.ExtractOptions{Omim: p.cfg.Mode == ModeOmim})
	if err != nil {
		return nil, err
	}

	if p.cfg.Mode == ModeOmim {
		return p.convertOmims(caseID, ex.Omims), nil
	}
	return p.convertAliases(caseID, ex.Genes), nil
}

// convertAliases resolves aliases to symbols and then symbols to gene IDs.
func (p *Pipeline) convertAliases(caseID string, aliases []string) *CaseResult {
	res := &CaseResult{CaseID: caseID, Extracted: aliases, Missing: make(lookup.Missing)}
	for i, alias := range aliases {
		row := Row{Rank: i + 1, Extracted: alias, GeneID: lookup.NA, GeneSymbol: lookup.NA}

		symbol, ok := p.refs.Aliases.AliasToSymbol(alias)
		if !ok {
			res.Missing.Add(alias)
			p.appendRow(res, row, false)
			continue
		}
		row.GeneSymbol = symbol

		id, ok := p.refs.Genes.SymbolToID(symbol)
		if !ok {
			res.Missing.Add(symbol)
		} else {
			row.GeneID = id
		}
		p.appendRow(res, row, ok)
	}
	return res
}

// convertOmims resolves OMIM numbers to gene IDs and then gene IDs to symbols.
func (p *Pipeline) convertOmims(caseID string, omims []string) *CaseResult {
	res := &CaseResult{CaseID: caseID, Extracted: omims, Missing: make(lookup.Missing)}
	for i, omim := range omims {
		row := Row{Rank: i + 1, Extracted: omim, GeneID: lookup.NA, GeneSymbol: lookup.NA}

		id, ok := p.refs.Omim.OmimToGeneID(omim)
		if !ok {
			res.Missing.Add(omim)
			p.appendRow(res, row, false)
			continue
		}
		row.GeneID = id

		symbol, ok := p.refs.Genes.IDToSymbol(id)
		if !ok {
			res.Missing.Add(id)
		} else {
			row.GeneSymbol = symbol
		}
		p.appendRow(res, row, ok)
	}
	return res
}

// appendRow keeps rows that fully converted. Partially converted rows are
// kept with NA placeholders only when IncludeNA is set.
func (p *Pipeline) appendRow(res *CaseResult, row Row, complete bool) {
	if complete || p.cfg.IncludeNA {
		res.Rows = append(res.Rows, row)
	}
}

func (p *Pipeline) outputFiles() []output.File {
	if p.cfg.Mode == ModeOmim {
		return []output.File{output.OmimsFile, output.GeneIDsFile, output.GeneSymbolsFile}
	}
	return []output.File{output.GeneAliasesFile, output.GeneSymbolsFile, output.GeneIDsFile}
}

func (p *Pipeline) writeResult(files *output.FileSet, res *CaseResult) error {
	ids := make([]string, len(res.Rows))
	symbols := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		ids[i] = row.GeneID
		symbols[i] = row.GeneSymbol
	}

	extractedColumn := output.ColumnGeneAliases
	if p.cfg.Mode == ModeOmim {
		extractedColumn = output.ColumnOmim
	}

	if err := files.Write(extractedColumn, res.CaseID, res.Extracted); err != nil {
		return err
	}
	if err := files.Write(output.ColumnGeneID, res.CaseID, ids); err != nil {
		return err
	}
	return files.Write(output.ColumnGeneSymbol, res.CaseID, symbols)
}

func (p *Pipeline) persist(summary *Summary, results []store.GeneResult, started time.Time) error {
	if p.store == nil {
		return nil
	}

	run := store.Run{
		ID:        summary.RunID,
		Tool:      ToolName,
		Mode:      string(p.cfg.Mode),
		OutputDir: p.cfg.OutputDir,
		Started:   started,
		Finished:  p.clock(),
		Cases:     summary.Cases,
		Succeeded: summary.Succeeded,
		Failed:    len(summary.Failed),
	}
	if err := p.store.WriteRun(run); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	if err := p.store.WriteGeneResults(summary.RunID, results); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	if err := p.store.WriteReferenceFiles(summary.RunID, p.references); err != nil {
		return fmt.Errorf("store reference files: %w", err)
	}

	p.logger.Info("results stored",
		zap.String("run_id", summary.RunID),
		zap.String("store", p.store.Path()))
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
