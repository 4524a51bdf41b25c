package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/molgenis/biobesu/internal/gene"
)

// downloadTimeout bounds a single reference file download.
const downloadTimeout = 10 * time.Minute

func newDownloadCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the HGNC gene ID to symbol file",
		Long: `Download the HGNC gene ID to approved symbol table used to convert
tool output. The file is stored as gene_ids_symbols.tsv in the gene directory
(default: ~/.biobesu/).`,
		Example: `  biobesu download
  biobesu download --dir /data/biobesu`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := viper.GetString("gene.dir")
			if dir == "" {
				return usagef("no gene directory configured, use --dir")
			}
			return runDownload(cmd, a, dir, viper.GetString("gene.url"), force)
		},
	}

	cmd.Flags().String("dir", "", "Directory to store the gene file in (default: ~/.biobesu/)")
	cmd.Flags().String("url", "", "Download URL (default: HGNC custom download)")
	cmd.Flags().BoolVar(&force, "force", false, "Download even if the file already exists")
	viper.BindPFlag("gene.dir", cmd.Flags().Lookup("dir"))
	viper.BindPFlag("gene.url", cmd.Flags().Lookup("url"))

	return cmd
}

func runDownload(cmd *cobra.Command, a *app, dir, url string, force bool) error {
	out := cmd.OutOrStdout()
	destPath := gene.FilePath(dir)

	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil && !force {
		fmt.Fprintf(out, "%s already exists (%s), skipping\n", destPath, formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(out, "Downloading %s...\n", filepath.Base(destPath))

	fetcher := gene.NewHTTPFetcher(downloadTimeout)
	fetcher.SetLogger(a.logger)
	pw := &progressWriter{out: cmd.ErrOrStderr(), lastPrint: time.Now()}
	fetcher.Progress = pw

	if err := fetcher.Fetch(cmd.Context(), url, destPath); err != nil {
		return fmt.Errorf("download gene file: %w", err)
	}

	// Parse once so a broken download is reported now rather than at run time.
	reg, err := gene.LoadRegistry(cmd.Context(), dir, nil)
	if err != nil {
		return fmt.Errorf("verify gene file: %w", err)
	}

	fmt.Fprintf(out, "Done: %s, %d genes\n", formatSize(pw.downloaded), reg.Len())
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		fmt.Fprintf(pw.out, "\r  Progress: %s  ", formatSize(pw.downloaded))
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
