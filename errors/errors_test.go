package errors_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/vaultdoc/fieldcrypt/errors"
)

func TestError(t *testing.T) {
	cause := goerrors.New("tag mismatch")
	e1 := errors.E(errors.AuthFailed, "decrypting /s", cause)
	if got, want := e1.Error(), "decrypting /s: authentication failed: tag mismatch"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e2 := errors.E(cause)
	if got, want := e2.Error(), "tag mismatch"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(errors.AuthFailed, e1) {
		t.Errorf("error %v should be AuthFailed", e1)
	}
}

func TestErrorChaining(t *testing.T) {
	err := errors.E(errors.FormatViolation, "reading header")
	err = errors.E(errors.FormatViolation, "decrypting /s", err)
	want := "decrypting /s: format violation:\n\treading header"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMessage(t *testing.T) {
	for _, c := range []struct {
		err     error
		message string
	}{
		{errors.E("hello"), "hello"},
		{errors.E("hello", "world"), "hello world"},
	} {
		if got, want := c.err.Error(), c.message; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestCancelledFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	<-ctx.Done()

	err := errors.E(ctx.Err())
	if !errors.Is(errors.Cancelled, err) {
		t.Errorf("error %v should be Cancelled", err)
	}
	if !goerrors.Is(err, context.Canceled) {
		t.Errorf("error %v should unwrap to context.Canceled", err)
	}
}

func TestKindInheritedFromCause(t *testing.T) {
	inner := errors.E(errors.InvalidPath, "duplicate path /s")
	outer := errors.E("validating request", inner)
	if !errors.Is(errors.InvalidPath, outer) {
		t.Errorf("error %v should inherit InvalidPath from its cause", outer)
	}
}

func TestVisit(t *testing.T) {
	leaf := goerrors.New("leaf")
	err := errors.E(errors.Internal, "outer", errors.E(errors.Internal, "middle", leaf))

	var msgs []string
	errors.Visit(err, func(e error) {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	})
	if len(msgs) != 3 {
		t.Errorf("expected 3 errors in chain, got %d: %v", len(msgs), msgs)
	}
}

func TestEBadArgType(t *testing.T) {
	err := errors.E(42)
	if !errors.Is(errors.InvalidArgument, err) {
		t.Errorf("error %v should be InvalidArgument for bad arg type", err)
	}
}

func ExampleE() {
	err := errors.E(errors.UnsupportedFormatVersion, "sidecar declares version 99")
	fmt.Println(err)
	// Output: sidecar declares version 99: unsupported format version
}
