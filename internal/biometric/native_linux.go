//go:build linux && biometric

package biometric

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

const verifyCommand = "fprintd-verify"

// fprintd drives the fprintd fingerprint daemon through its CLI.
type fprintd struct {
	path string
}

// New returns the fingerprint authenticator, or Noop when fprintd is not
// installed.
func New() Authenticator {
	path, err := exec.LookPath(verifyCommand)
	if err != nil {
		return Noop{}
	}
	return fprintd{path: path}
}

func (f fprintd) Available() bool { return true }

func (f fprintd) Authenticate(ctx context.Context, reason string) error {
	if reason != "" {
		fmt.Printf("Touch the fingerprint reader to %s\n", reason)
	}
	out, err := exec.CommandContext(ctx, f.path).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s", ErrRejected, lastLine(out))
		}
		return fmt.Errorf("biometric: running %s: %w", verifyCommand, err)
	}
	return nil
}

func lastLine(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == '\n' || b[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && b[start-1] != '\n' {
		start--
	}
	return string(b[start:end])
}
