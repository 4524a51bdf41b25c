package lirical

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// maxOutputTail bounds the amount of process output kept in a RunError.
	maxOutputTail = 2048
	// waitDelay bounds how long output pipes are drained after the process
	// was killed.
	waitDelay = 2 * time.Second
)

// Request describes one LIRICAL invocation.
type Request struct {
	CaseID          string
	PhenopacketPath string
	OutputDir       string
}

// Invoker runs LIRICAL for a single case. The result is expected at
// ResultPath(req.OutputDir, req.CaseID) once Invoke returns nil.
type Invoker interface {
	Invoke(ctx context.Context, req Request) error
}

// ResultPath returns the TSV file LIRICAL writes for a case.
func ResultPath(outputDir, caseID string) string {
	return filepath.Join(outputDir, caseID+".tsv")
}

// Runner invokes the LIRICAL jar through java.
type Runner struct {
	Java    string        // java executable, "java" when empty
	Jar     string        // path to LIRICAL.jar
	DataDir string        // LIRICAL data directory
	Timeout time.Duration // per invocation, none when zero
	// ExtraArgs are appended after the fixed arguments.
	ExtraArgs []string

	logger *zap.Logger
}

// NewRunner creates a runner for the given jar and data directory.
func NewRunner(jar, dataDir string) *Runner {
	return &Runner{
		Java:    "java",
		Jar:     jar,
		DataDir: dataDir,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for invocation messages.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Args returns the command line arguments for req, excluding the java
// executable itself.
func (r *Runner) Args(req Request) []string {
	args := []string{
		"-jar", r.Jar,
		"P",
		"-p", req.PhenopacketPath,
		"-d", r.DataDir,
		"-o", req.OutputDir,
		"-x", req.CaseID,
		"--tsv",
	}
	return append(args, r.ExtraArgs...)
}

// Invoke runs LIRICAL for req and waits for it to finish.
func (r *Runner) Invoke(ctx context.Context, req Request) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	java := r.Java
	if java == "" {
		java = "java"
	}
	logger := r.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return fmt.Errorf("create lirical output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, java, r.Args(req)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	logger.Debug("lirical finished",
		zap.String("case_id", req.CaseID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if err != nil {
		return &RunError{
			CaseID:   req.CaseID,
			Err:      err,
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Output:   tail(out.Bytes(), maxOutputTail),
		}
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}

// RunError reports a failed LIRICAL invocation.
type RunError struct {
	CaseID   string
	Err      error
	TimedOut bool
	Output   string // last part of the combined stdout/stderr
}

func (e *RunError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("lirical timed out for case %s: %v", e.CaseID, e.Err)
	}
	return fmt.Sprintf("lirical failed for case %s: %v", e.CaseID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
