package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ProcessOptions configures how an external process is run.
type ProcessOptions struct {
	// WorkDir sets the working directory for the process
	WorkDir string

	// CaptureOutput collects stdout/stderr instead of inheriting them
	CaptureOutput bool
}

// ProcessOption is a function that configures ProcessOptions
type ProcessOption func(*ProcessOptions)

// WithWorkDir sets the working directory for the process
func WithWorkDir(dir string) ProcessOption {
	return func(opts *ProcessOptions) {
		opts.WorkDir = dir
	}
}

// WithCaptureOutput enables capturing of stdout/stderr
func WithCaptureOutput() ProcessOption {
	return func(opts *ProcessOptions) {
		opts.CaptureOutput = true
	}
}

// ProcessResult is the outcome of RunProcess.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunProcess starts name with args and waits for it to exit. A non-zero
// exit code is reported in the result, not as an error.
func RunProcess(ctx context.Context, name string, args []string, options ...ProcessOption) (*ProcessResult, error) {
	opts := &ProcessOptions{}
	for _, opt := range options {
		opt(opts)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	if opts.CaptureOutput {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	result := &ProcessResult{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("run %s: %w", name, err)
	}
	return result, nil
}
