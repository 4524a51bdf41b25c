package main

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/molgenis/biobesu/internal/benchmark"
	"github.com/molgenis/biobesu/internal/gene"
	"github.com/molgenis/biobesu/internal/hpo"
	"github.com/molgenis/biobesu/internal/lirical"
	"github.com/molgenis/biobesu/internal/pipeline"
	"github.com/molgenis/biobesu/internal/store"
)

// Reference files shipped in the LIRICAL data directory.
const (
	geneInfoFile = "Homo_sapiens.gene_info.gz"
	mim2geneFile = "mim2gene_medgen"
)

// errFailedCases is returned in strict mode when some cases failed.
var errFailedCases = errors.New("benchmark finished with failed cases")

func newHPOGeneRankCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hpo-generank",
		Short: "Benchmark gene prioritization from HPO phenotypes",
		Long: `The hpo-generank suite ranks genes for cases described by HPO
phenotypes. Each runner invokes one prioritization tool.`,
	}

	cmd.AddCommand(newLiricalCmd(a))

	return cmd
}

// referenceFile is an input recorded with the results of a run.
type referenceFile struct {
	role string
	path string
}

// liricalOptions holds flags that are not bound to config keys.
type liricalOptions struct {
	input    string
	hpo      string
	output   string
	geneInfo string
	mim2gene string
	strict   bool
}

func newLiricalCmd(a *app) *cobra.Command {
	var opts liricalOptions

	cmd := &cobra.Command{
		Use:   "lirical",
		Short: "Run the benchmark with LIRICAL",
		Long: `Encode every benchmark case as a phenopacket, run LIRICAL per case and
write the ranked genes as gene_aliases.tsv (or omims.tsv), gene_symbols.tsv and
gene_ids.tsv to the output directory.`,
		Example: `  biobesu hpo-generank lirical --input benchmark.tsv --hpo hp.obo --output results \
    --jar LIRICAL.jar --data data
  biobesu hpo-generank lirical --input benchmark.tsv --hpo hp.obo --output results --mode omim --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLirical(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", "Input benchmark file (.tsv, required)")
	f.StringVar(&opts.hpo, "hpo", "", "hp.obo file (required)")
	f.StringVar(&opts.output, "output", "", "Directory to write output to (required)")
	f.StringVar(&opts.geneInfo, "gene-info", "", "NCBI gene_info file (default: <data>/"+geneInfoFile+")")
	f.StringVar(&opts.mim2gene, "mim2gene", "", "mim2gene file (default: <data>/"+mim2geneFile+")")
	f.BoolVar(&opts.strict, "strict", false, "Exit with an error when any case fails")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("hpo")
	cmd.MarkFlagRequired("output")

	f.String("jar", "", "LIRICAL jar file")
	f.String("data", "", "LIRICAL data directory")
	f.String("java", "java", "Java executable")
	f.Duration("timeout", 0, "Timeout per case (default: 30m)")
	f.Int("workers", 0, "Concurrent LIRICAL runs (default: number of CPUs)")
	f.String("mode", "alias", "Gene identification: alias or omim")
	f.String("on-existing", "abort", "Existing phenopackets: abort or reuse")
	f.Bool("include-na", true, "Write NA for genes that could not be converted")
	f.String("store", "", "DuckDB file to record results in (optional)")

	for key, flag := range map[string]string{
		"lirical.jar":          "jar",
		"lirical.data":         "data",
		"lirical.java":         "java",
		"lirical.timeout":      "timeout",
		"pipeline.workers":     "workers",
		"pipeline.mode":        "mode",
		"pipeline.on_existing": "on-existing",
		"pipeline.include_na":  "include-na",
		"store.path":           "store",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	return cmd
}

func runLirical(cmd *cobra.Command, a *app, opts liricalOptions) error {
	ctx := cmd.Context()
	logger := a.logger

	// Validate inputs before loading anything.
	if err := checkFile(opts.input, ".tsv"); err != nil {
		return err
	}
	if err := checkFile(opts.hpo, ".obo"); err != nil {
		return err
	}
	outDir, err := checkDir(opts.output)
	if err != nil {
		return err
	}
	jar := viper.GetString("lirical.jar")
	if err := checkFile(jar, ".jar"); err != nil {
		return fmt.Errorf("lirical jar: %w", err)
	}
	dataDir, err := checkDir(viper.GetString("lirical.data"))
	if err != nil {
		return fmt.Errorf("lirical data: %w", err)
	}
	java := viper.GetString("lirical.java")
	if _, err := exec.LookPath(java); err != nil {
		return fmt.Errorf("%s is not available on this system: %w", java, err)
	}

	mode, err := pipeline.ParseMode(viper.GetString("pipeline.mode"))
	if err != nil {
		return &usageError{err: err}
	}
	policy, err := pipeline.ParseExistingPolicy(viper.GetString("pipeline.on_existing"))
	if err != nil {
		return &usageError{err: err}
	}

	geneInfo := opts.geneInfo
	if geneInfo == "" {
		geneInfo = filepath.Join(dataDir, geneInfoFile)
	}
	mim2gene := opts.mim2gene
	if mim2gene == "" {
		mim2gene = filepath.Join(dataDir, mim2geneFile)
	}

	// Load references.
	ontology, err := hpo.Load(opts.hpo)
	if err != nil {
		return err
	}
	logger.Info("loaded ontology", zap.String("version", ontology.Version), zap.Int("entries", ontology.Len()))

	genes, err := loadGeneRegistry(cmd, a)
	if err != nil {
		return err
	}

	refs := pipeline.References{Ontology: ontology, Genes: genes}
	references := []referenceFile{
		{"benchmark", opts.input},
		{"hpo", opts.hpo},
		{"genes", gene.FilePath(viper.GetString("gene.dir"))},
	}
	switch mode {
	case pipeline.ModeAlias:
		if refs.Aliases, err = gene.LoadAliases(geneInfo); err != nil {
			return err
		}
		logger.Info("loaded gene aliases", zap.Int("aliases", refs.Aliases.Len()))
		references = append(references, referenceFile{"aliases", geneInfo})
	case pipeline.ModeOmim:
		if refs.Omim, err = gene.LoadOmim(mim2gene); err != nil {
			return err
		}
		logger.Info("loaded omim mapping", zap.Int("entries", refs.Omim.Len()))
		references = append(references, referenceFile{"omim", mim2gene})
	}

	cases, err := benchmark.ReadFile(opts.input)
	if err != nil {
		return err
	}
	logger.Info("read benchmark", zap.Int("cases", len(cases)))

	runner := lirical.NewRunner(jar, dataDir)
	runner.Java = java
	runner.SetLogger(logger)

	cfg := pipeline.Config{
		OutputDir:  outDir,
		Workers:    viper.GetInt("pipeline.workers"),
		Timeout:    viper.GetDuration("lirical.timeout"),
		Mode:       mode,
		OnExisting: policy,
		IncludeNA:  viper.GetBool("pipeline.include_na"),
	}
	p := pipeline.New(cfg, refs, runner)
	p.SetLogger(logger)

	if path := viper.GetString("store.path"); path != "" {
		s, err := store.Open(path)
		if err != nil {
			return err
		}
		defer s.Close()

		var fingerprints []store.FileFingerprint
		for _, ref := range references {
			fp, err := store.StatFile(ref.role, ref.path)
			if err != nil {
				return fmt.Errorf("fingerprint %s: %w", ref.role, err)
			}
			fingerprints = append(fingerprints, fp)
		}
		p.SetStore(s, fingerprints)
	}

	summary, err := p.Run(ctx, cases)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return err
	}
	if opts.strict && len(summary.Failed) > 0 {
		return fmt.Errorf("%w: %d of %d", errFailedCases, len(summary.Failed), summary.Cases)
	}
	return nil
}

func printSummary(w io.Writer, s *pipeline.Summary) {
	fmt.Fprintf(w, "Run %s: %d cases, %d succeeded, %d failed\n",
		s.RunID, s.Cases, s.Succeeded, len(s.Failed))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "  failed %s: %v\n", f.CaseID, f.Err)
	}
	if s.Missing.Len() > 0 {
		fmt.Fprintf(w, "%d values could not be converted\n", s.Missing.Len())
	}
	for _, f := range s.Stale {
		fmt.Fprintf(w, "warning: %s file %s changed since the previous run, reused results may be outdated\n", f.Role, f.Path)
	}
}
