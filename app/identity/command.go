package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrCommandUnavailable is returned when the requested binary is not installed.
var ErrCommandUnavailable = errors.New("command not available")

// Runner executes an external probe command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// CommandRunner executes probe commands with a timeout
type CommandRunner struct {
	timeout time.Duration
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(timeout time.Duration) *CommandRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandRunner{timeout: timeout}
}

// Output runs name with args and returns trimmed stdout
func (r *CommandRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	if _, err := exec.LookPath(name); err != nil {
		return "", fmt.Errorf("%w: %s", ErrCommandUnavailable, name)
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(execCtx, name, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("execution failed: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
