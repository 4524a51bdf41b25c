package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/molgenis/biobesu/internal/gene"
	"github.com/molgenis/biobesu/internal/hpo"
	"github.com/molgenis/biobesu/internal/lookup"
)

// translateFunc resolves a single key.
type translateFunc func(key string) (string, bool)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert identifiers using the reference files",
		Long: `Convert identifiers read one per line from a file (or stdin when the
file is "-" or omitted). Each key is written with its value, separated by a
tab. Keys that cannot be converted get NA and are listed on stderr.`,
		Example: `  biobesu convert gene-ids ids.txt
  echo NAT2 | biobesu convert gene-symbols
  biobesu convert hpo --hpo hp.obo phenotypes.txt
  biobesu convert aliases --gene-info Homo_sapiens.gene_info.gz aliases.txt`,
	}

	cmd.AddCommand(newConvertGeneCmd(a, "gene-ids", "Convert NCBI gene IDs to HGNC symbols",
		func(r *gene.Registry) translateFunc { return r.IDToSymbol }))
	cmd.AddCommand(newConvertGeneCmd(a, "gene-symbols", "Convert HGNC symbols to NCBI gene IDs",
		func(r *gene.Registry) translateFunc { return r.SymbolToID }))
	cmd.AddCommand(newConvertHPOCmd(a))
	cmd.AddCommand(newConvertAliasesCmd(a))
	cmd.AddCommand(newConvertOmimCmd(a))

	return cmd
}

func newConvertGeneCmd(a *app, use, short string, pick func(*gene.Registry) translateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadGeneRegistry(cmd, a)
			if err != nil {
				return err
			}
			return runConvert(cmd, a, args, pick(reg))
		},
	}
}

func newConvertHPOCmd(a *app) *cobra.Command {
	var oboPath string
	var reverse bool

	cmd := &cobra.Command{
		Use:   "hpo [file]",
		Short: "Convert HPO IDs to phenotype names (or back with --reverse)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFile(oboPath, ".obo"); err != nil {
				return err
			}
			o, err := hpo.Load(oboPath)
			if err != nil {
				return err
			}
			a.logger.Info("loaded ontology",
				zap.String("version", o.Version),
				zap.Int("entries", o.Len()))
			if reverse {
				return runConvert(cmd, a, args, o.NameToID)
			}
			return runConvert(cmd, a, args, o.IDToName)
		},
	}

	cmd.Flags().StringVar(&oboPath, "hpo", "", "hp.obo file (required)")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "Convert phenotype names to HPO IDs")
	cmd.MarkFlagRequired("hpo")

	return cmd
}

func newConvertAliasesCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "aliases [file]",
		Short: "Convert gene aliases to HGNC symbols",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFile(path, ""); err != nil {
				return err
			}
			reg, err := gene.LoadAliases(path)
			if err != nil {
				return err
			}
			return runConvert(cmd, a, args, reg.AliasToSymbol)
		},
	}

	cmd.Flags().StringVar(&path, "gene-info", "", "NCBI gene_info file, optionally gzipped (required)")
	cmd.MarkFlagRequired("gene-info")

	return cmd
}

func newConvertOmimCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "omims [file]",
		Short: "Convert OMIM numbers to NCBI gene IDs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFile(path, ""); err != nil {
				return err
			}
			reg, err := gene.LoadOmim(path)
			if err != nil {
				return err
			}
			return runConvert(cmd, a, args, reg.OmimToGeneID)
		},
	}

	cmd.Flags().StringVar(&path, "mim2gene", "", "mim2gene_medgen file (required)")
	cmd.MarkFlagRequired("mim2gene")

	return cmd
}

// loadGeneRegistry loads the gene file from the configured directory,
// downloading it when absent.
func loadGeneRegistry(cmd *cobra.Command, a *app) (*gene.Registry, error) {
	dir := viper.GetString("gene.dir")
	if dir == "" {
		return nil, usagef("no gene directory configured (gene.dir)")
	}

	fetcher := gene.NewHTTPFetcher(downloadTimeout)
	fetcher.SetLogger(a.logger)

	reg, err := gene.LoadRegistryFrom(cmd.Context(), dir, viper.GetString("gene.url"), fetcher)
	if err != nil {
		return nil, err
	}
	a.logger.Info("loaded gene registry", zap.Int("genes", reg.Len()))
	return reg, nil
}

func runConvert(cmd *cobra.Command, a *app, args []string, translate translateFunc) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	keys, err := readKeys(in)
	if err != nil {
		return err
	}

	missing := convertKeys(cmd.OutOrStdout(), keys, translate)
	if missing.Len() > 0 {
		a.logger.Warn("keys without value", zap.Int("missing", missing.Len()))
		fmt.Fprintf(cmd.ErrOrStderr(), "Missing (%d): %s\n", missing.Len(), strings.Join(missing.Sorted(), ", "))
	}
	return nil
}

// convertKeys writes one "key\tvalue" line per key, using NA for keys
// translate cannot resolve.
func convertKeys(w io.Writer, keys []string, translate translateFunc) lookup.Missing {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	missing := make(lookup.Missing)
	for _, key := range keys {
		value, ok := translate(key)
		if !ok {
			value = lookup.NA
			missing.Add(key)
		}
		fmt.Fprintf(bw, "%s\t%s\n", key, value)
	}
	return missing
}

// readKeys reads one key per line, skipping blank lines.
func readKeys(r io.Reader) ([]string, error) {
	var keys []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return keys, nil
}
