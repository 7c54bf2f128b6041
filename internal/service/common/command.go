//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// defaultCommandTimeout bounds a single vendor tool invocation.
const defaultCommandTimeout = 10 * time.Second

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each invocation; zero means defaultCommandTimeout.
	Timeout time.Duration
}

// Output runs name with args and returns stdout. On failure the error carries
// the trimmed stderr so vendor tool messages reach the logs.
func (r ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer

	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return output, fmt.Errorf("%s: %w: %s", name, err, msg)
		}

		return output, fmt.Errorf("%s: %w", name, err)
	}

	return output, nil
}
