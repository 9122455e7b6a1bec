// Package runner executes external commands with captured output, bounded
// runtime, and guaranteed termination when the owning context is cancelled.
//
// Every subprocess the pipeline spawns (extraction tools, the encoder, the
// media probe) goes through this package so supervision behaviour stays in
// one place and tests can substitute a fake Runner.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Command describes one subprocess invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result captures the observable outcome of a finished subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// StderrTail returns the trailing portion of stderr for diagnostics.
func (r Result) StderrTail() string {
	const maxTail = 2048
	text := strings.TrimSpace(string(r.Stderr))
	if len(text) > maxTail {
		text = text[len(text)-maxTail:]
	}
	return text
}

// Runner executes commands. The interface exists so stage clients can be
// tested without spawning real processes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ErrNotFound reports that the requested binary could not be resolved.
var ErrNotFound = exec.ErrNotFound

// New returns the production Runner backed by os/exec.
func New() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, command Command) (Result, error) {
	if strings.TrimSpace(command.Binary) == "" {
		return Result{}, errors.New("runner: binary required")
	}

	runCtx := ctx
	if command.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	// Give the process a moment to exit after the kill signal before the
	// Wait call is abandoned.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		// Prefer the context error so callers can distinguish timeout and
		// cancellation from a tool failure.
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, err
	}
	return result, nil
}
