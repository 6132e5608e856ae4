package biometric

import (
	"context"
	"errors"
	"testing"
)

type fakeAuth struct {
	available bool
	err       error
	calls     int
}

func (f *fakeAuth) Available() bool { return f.available }

func (f *fakeAuth) Authenticate(context.Context, string) error {
	f.calls++
	return f.err
}

func TestNoop(t *testing.T) {
	var a Authenticator = Noop{}
	if a.Available() {
		t.Fatal("Noop reports available")
	}
	if err := a.Authenticate(context.Background(), "reveal"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	if err := Require(ctx, nil, "x", false); err != nil {
		t.Fatalf("optional check without authenticator: %v", err)
	}
	if err := Require(ctx, Noop{}, "x", true); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("required check without authenticator: %v", err)
	}

	ok := &fakeAuth{available: true}
	if err := Require(ctx, ok, "x", true); err != nil || ok.calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, ok.calls)
	}
	bad := &fakeAuth{available: true, err: ErrRejected}
	if err := Require(ctx, bad, "x", false); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}
