package source

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// runCommand executes an external tool and returns its stdout. Errors wrap
// the command line and trailing stderr so per-item failure reasons stay
// readable in cleanup reports.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, lastLine(msg))
		}
		return nil, fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// runQuiet executes an external tool for its side effect only.
func runQuiet(ctx context.Context, name string, args ...string) error {
	_, err := runCommand(ctx, name, args...)
	return err
}

// commandExists reports whether the named tool is on PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// lastLine keeps failure reasons to one line; package-manager stderr is
// frequently many screens of advice.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// IsTimeout reports whether an external-tool error was caused by the
// context deadline rather than the tool itself.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
