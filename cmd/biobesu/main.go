// Package main provides the biobesu command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/molgenis/biobesu/internal/gene"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configName is the base name of the config file in the home directory.
const configName = ".biobesu"

// usageError marks errors caused by invalid command line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// app holds state shared by all commands.
type app struct {
	configFile string
	verbose    bool
	logger     *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	a.logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var uerr *usageError
		if errors.As(err, &uerr) || isCobraUsageError(err) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// isCobraUsageError detects argument errors cobra reports without a typed
// error.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "required flag", "accepts "} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "biobesu",
		Short: "Benchmark suite for phenotype-based gene prioritization tools",
		Long: `biobesu runs benchmark cases through gene prioritization tools and
converts their rankings into comparable gene lists.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.configFile); err != nil {
				return err
			}
			logger, err := newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default: ~/.biobesu.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newHPOGeneRankCmd(a))
	root.AddCommand(newDownloadCmd(a))
	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newResultsCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig reads the config file and environment. A missing config file
// is not an error.
func initConfig(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("BIOBESU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("lirical.java", "java")
	viper.SetDefault("lirical.timeout", "30m")
	viper.SetDefault("pipeline.workers", 0)
	viper.SetDefault("pipeline.mode", "alias")
	viper.SetDefault("pipeline.on_existing", "abort")
	viper.SetDefault("pipeline.include_na", true)
	viper.SetDefault("gene.dir", defaultGeneDir())
	viper.SetDefault("gene.url", gene.DownloadURL)
}

// defaultGeneDir returns ~/.biobesu, the default location of the gene file.
func defaultGeneDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configName)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}
