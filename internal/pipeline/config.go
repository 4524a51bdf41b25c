package pipeline

import (
	"fmt"
	"time"
)

// Mode selects which column of the tool output is used to identify genes.
type Mode string

const (
	// ModeAlias extracts gene aliases from the disease label.
	ModeAlias Mode = "alias"
	// ModeOmim extracts OMIM numbers from the disease curie.
	ModeOmim Mode = "omim"
)

// ExistingPolicy decides what happens when a previous run left phenopackets
// in the output directory.
type ExistingPolicy string

const (
	// PolicyAbort refuses to run.
	PolicyAbort ExistingPolicy = "abort"
	// PolicyReuse keeps existing phenopackets and tool results and only
	// produces what is missing.
	PolicyReuse ExistingPolicy = "reuse"
)

// Subdirectories of the output directory.
const (
	PhenopacketDir = "phenopackets"
	ResultDir      = "lirical"
)

// Config holds the settings of a benchmark run.
type Config struct {
	OutputDir  string
	Workers    int           // concurrent tool invocations, runtime.NumCPU() when zero
	Timeout    time.Duration // per case, none when zero
	Mode       Mode
	OnExisting ExistingPolicy
	// IncludeNA writes NA for values that could not be converted, keeping
	// every output list aligned with the extracted list.
	IncludeNA bool
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig(outputDir string) Config {
	return Config{
		OutputDir:  outputDir,
		Mode:       ModeAlias,
		OnExisting: PolicyAbort,
		IncludeNA:  true,
	}
}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAlias, ModeOmim:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (expected %s or %s)", s, ModeAlias, ModeOmim)
}

// ParseExistingPolicy converts a string into an ExistingPolicy.
func ParseExistingPolicy(s string) (ExistingPolicy, error) {
	switch ExistingPolicy(s) {
	case PolicyAbort, PolicyReuse:
		return ExistingPolicy(s), nil
	}
	return "", fmt.Errorf("unknown existing output policy %q (expected %s or %s)", s, PolicyAbort, PolicyReuse)
}

func (c Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("no output directory")
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if _, err := ParseExistingPolicy(string(c.OnExisting)); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", c.Workers)
	}
	return nil
}
