// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a helper invocation when the caller does not
// configure one.
const DefaultTimeout = 10 * time.Second

// ErrTimeout reports a helper killed because it exceeded its timeout.
var ErrTimeout = errors.New("command timed out")

// Request describes one helper invocation.
type Request struct {
	Name  string
	Args  []string
	Stdin []byte
}

func (r Request) String() string {
	return strings.Join(append([]string{r.Name}, r.Args...), " ")
}

// Result carries the output of a finished helper. ExitCode is 127 when
// the binary could not be started and -1 when it was killed.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes helper programs. Implementations return the Result
// even when err is non-nil so callers can inspect exit codes and
// stderr.
type Runner interface {
	Run(ctx context.Context, request Request) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, request Request) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, request Request) (Result, error) {
	return f(ctx, request)
}

// ExecRunner runs helpers on the local host.
type ExecRunner struct {
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, request Request) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, request.Name, request.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if request.Stdin != nil {
		cmd.Stdin = bytes.NewReader(request.Stdin)
	}
	// Children that inherit stdout would otherwise keep Wait blocked
	// after the kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%s: %w after %s", request.Name, ErrTimeout, timeout)
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, fmt.Errorf("%s exited with status %d: %s", request.Name, result.ExitCode, firstLine(result.Stderr))
	}

	result.ExitCode = 1
	var execError *exec.Error
	if errors.As(err, &execError) {
		result.ExitCode = 127
	}
	return result, fmt.Errorf("running %s: %w", request.Name, err)
}

// firstLine returns the first non-empty line of output, for error
// messages.
func firstLine(output []byte) string {
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "(no output)"
}
