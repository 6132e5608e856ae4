// Package biometric gates sensitive operator actions behind a platform
// biometric check when one is available.
package biometric

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	ErrUnavailable = errors.New("biometric: no authenticator available on this platform")
	ErrRejected    = errors.New("biometric: verification failed")
)

// Authenticator verifies the person at the keyboard.
type Authenticator interface {
	Available() bool
	Authenticate(ctx context.Context, reason string) error
}

// Noop is the authenticator for platforms without biometric support.
type Noop struct{}

// Available implements Authenticator.
func (Noop) Available() bool { return false }

// Authenticate implements Authenticator.
func (Noop) Authenticate(context.Context, string) error { return ErrUnavailable }

// Require runs a check when a is available. When it is not, required
// decides: true fails with ErrUnavailable, false lets the caller through.
func Require(ctx context.Context, a Authenticator, reason string, required bool) error {
	if a == nil || !a.Available() {
		if required {
			return ErrUnavailable
		}
		return nil
	}
	return a.Authenticate(ctx, reason)
}
