package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/molgenis/biobesu/internal/store"
)

func newResultsCmd() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Query benchmark results recorded in a results store",
		Long: `Inspect runs recorded with "hpo-generank lirical --store". The store
defaults to the store.path config value.`,
		Example: `  biobesu results runs --store results.duckdb
  biobesu results case <run-id> 12
  biobesu results gene <run-id> NAT2
  biobesu results delete <run-id>`,
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", "", "DuckDB results file (default: store.path)")

	// withStore opens the existing store for a subcommand.
	withStore := func(fn func(w io.Writer, s *store.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			path := storePath
			if path == "" {
				path = viper.GetString("store.path")
			}
			if path == "" {
				return usagef("no results store: use --store or set store.path")
			}
			if err := checkFile(path, ""); err != nil {
				return err
			}

			s, err := store.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()
			return fn(cmd.OutOrStdout(), s, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "runs",
			Short: "List recorded runs",
			Args:  cobra.NoArgs,
			RunE:  withStore(runResultsRuns),
		},
		&cobra.Command{
			Use:   "run <run-id>",
			Short: "Show a run and the state of its reference files",
			Args:  cobra.ExactArgs(1),
			RunE:  withStore(runResultsRun),
		},
		&cobra.Command{
			Use:   "case <run-id> <case-id>",
			Short: "Show the ranked genes of a case",
			Args:  cobra.ExactArgs(2),
			RunE:  withStore(runResultsCase),
		},
		&cobra.Command{
			Use:   "gene <run-id> <symbol>",
			Short: "Show the cases whose ranking contains a gene",
			Args:  cobra.ExactArgs(2),
			RunE:  withStore(runResultsGene),
		},
		&cobra.Command{
			Use:   "delete <run-id>",
			Short: "Delete a run and its results",
			Args:  cobra.ExactArgs(1),
			RunE:  withStore(runResultsDelete),
		},
	)

	return cmd
}

func runResultsRuns(w io.Writer, s *store.Store, _ []string) error {
	runs, err := s.Runs()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTOOL\tMODE\tSTARTED\tCASES\tSUCCEEDED\tFAILED\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Tool, r.Mode, r.Started.Format(time.RFC3339),
			r.Cases, r.Succeeded, r.Failed, r.OutputDir)
	}
	return tw.Flush()
}

func runResultsRun(w io.Writer, s *store.Store, args []string) error {
	r, err := lookupRun(s, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run:       %s\n", r.ID)
	fmt.Fprintf(w, "Tool:      %s (%s)\n", r.Tool, r.Mode)
	fmt.Fprintf(w, "Output:    %s\n", r.OutputDir)
	fmt.Fprintf(w, "Started:   %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:  %s\n", r.Finished.Sub(r.Started).Round(time.Second))
	fmt.Fprintf(w, "Cases:     %d (%d succeeded, %d failed)\n", r.Cases, r.Succeeded, r.Failed)

	refs, err := s.ReferenceFiles(r.ID)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tPATH\tSIZE\tSTATE")
	for _, f := range refs {
		state := "unchanged"
		if f.Changed() {
			state = "changed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Role, f.Path, formatSize(f.Size), state)
	}
	return tw.Flush()
}

func runResultsCase(w io.Writer, s *store.Store, args []string) error {
	if _, err := lookupRun(s, args[0]); err != nil {
		return err
	}
	results, err := s.LookupCase(args[0], args[1])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no results for case %q in run %s", args[1], args[0])
	}
	return writeGeneResults(w, results)
}

func runResultsGene(w io.Writer, s *store.Store, args []string) error {
	if _, err := lookupRun(s, args[0]); err != nil {
		return err
	}
	results, err := s.SearchByGene(args[0], args[1])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(w, "%s is not ranked in any case\n", args[1])
		return nil
	}
	return writeGeneResults(w, results)
}

func runResultsDelete(w io.Writer, s *store.Store, args []string) error {
	if _, err := lookupRun(s, args[0]); err != nil {
		return err
	}
	if err := s.DeleteRun(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted run %s\n", args[0])
	return nil
}

func lookupRun(s *store.Store, runID string) (*store.Run, error) {
	r, err := s.LookupRun(runID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("run %s not found in %s", runID, s.Path())
	}
	return r, nil
}

func writeGeneResults(w io.Writer, results []store.GeneResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tRANK\tEXTRACTED\tGENE_ID\tGENE_SYMBOL")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.CaseID, r.Rank, r.Extracted, r.GeneID, r.GeneSymbol)
	}
	return tw.Flush()
}
