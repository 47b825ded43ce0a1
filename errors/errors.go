// Package errors implements an error type carrying a domain-specific
// Kind (an interpretable error code) and an optional wrapped cause, so
// that callers of the field-encryption codec can distinguish a bad
// request from a corrupt document from an authentication failure
// without string-matching error messages.
//
// Errors can be chained: one error can wrap (attribute to) another,
// and the chain is printed by Error().
package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vaultdoc/fieldcrypt/log"
)

// Separator defines the separation string inserted between
// chained errors in error messages.
var Separator = ":\n\t"

// Kind defines the type of error, drawn from the codec's error table.
// Kinds are semantically meaningful and are interpreted by callers to
// decide whether to retry, surface a validation message, or request a
// key-rotation/upgrade.
type Kind int

const (
	// Other indicates an unclassified error.
	Other Kind = iota
	// InvalidArgument indicates a malformed request, such as an empty
	// key id or an empty algorithm. A nil path set is treated as an
	// empty one and is not an error.
	InvalidArgument
	// InvalidPath indicates a path that does not start with "/",
	// contains an inner "/", equals the reserved "/id", or duplicates
	// another path in the same request.
	InvalidPath
	// UnsupportedAlgorithm indicates an algorithm outside the
	// supported enumeration.
	UnsupportedAlgorithm
	// UnsupportedFormatVersion indicates a sidecar format version this
	// codec does not know how to decrypt.
	UnsupportedFormatVersion
	// FormatViolation indicates malformed per-value framing: bad
	// header bytes, invalid base64, or a truncated payload.
	FormatViolation
	// AuthFailed indicates an authenticated-decryption tag mismatch.
	AuthFailed
	// CompressionMismatch indicates that a value's compression framing
	// disagrees with the sidecar's record of compressed paths and their
	// original lengths, or with its own recorded original length.
	CompressionMismatch
	// Cancelled indicates the operation observed context cancellation
	// at a yield point.
	Cancelled
	// Internal indicates an unexpected internal failure: a pool
	// return failure or inconsistent writer state.
	Internal

	maxKind
)

var kinds = map[Kind]string{
	Other:                    "unknown error",
	InvalidArgument:          "invalid argument",
	InvalidPath:              "invalid path",
	UnsupportedAlgorithm:     "unsupported algorithm",
	UnsupportedFormatVersion: "unsupported format version",
	FormatViolation:          "format violation",
	AuthFailed:               "authentication failed",
	CompressionMismatch:      "compression mismatch",
	Cancelled:                "operation was cancelled",
	Internal:                 "internal error",
}

// String returns a human-readable explanation of the error kind k.
func (k Kind) String() string {
	return kinds[k]
}

// Error is the standard error type, carrying a kind (error code),
// message (error message), and potentially an underlying error.
// Errors should be constructed by errors.E, which interprets
// arguments according to a set of rules.
type Error struct {
	// Kind is the error's type.
	Kind Kind
	// Message is an optional error message associated with this error.
	Message string
	// Err is the error that caused this error, if any. Errors can form
	// chains through Err: the full chain is printed by Error().
	Err error
}

// E constructs a new error from the provided arguments. It is meant as
// a convenient way to construct, annotate, and wrap errors.
//
// Arguments are interpreted according to their types:
//
//   - Kind: sets the Error's kind
//   - string: sets the Error's message; multiple strings are
//     separated by a single space
//   - *Error: copies the error and sets the error's cause
//   - error: sets the Error's cause
//
// If an unrecognized argument type is encountered, an error with kind
// InvalidArgument is returned.
//
// If a kind is not provided but an underlying error is, E attempts to
// interpret the underlying error: context.Canceled maps to Cancelled,
// and an os.IsNotExist error maps to InvalidArgument (a referenced
// file, e.g. a CLI input path, does not exist).
//
// If the underlying error is another *Error, and a kind is not
// provided, the returned error inherits that error's kind.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("no args")
	}
	e := new(Error)
	var msg strings.Builder
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case string:
			if msg.Len() > 0 {
				msg.WriteString(" ")
			}
			msg.WriteString(arg)
		case *Error:
			cp := *arg
			if len(args) == 1 {
				return &cp
			}
			e.Err = &cp
		case error:
			e.Err = arg
		default:
			log.Error.Printf("errors.E: bad call (type %T): %v", arg, arg)
			return &Error{
				Kind:    InvalidArgument,
				Message: fmt.Sprintf("unknown type %T, value %v in error call", arg, arg),
			}
		}
	}
	e.Message = msg.String()
	if e.Err == nil {
		return e
	}
	switch prev := e.Err.(type) {
	case *Error:
		if prev.Kind == e.Kind || e.Kind == Other {
			e.Kind = prev.Kind
			prev.Kind = Other
		}
	default:
		if e.Kind != Other {
			break
		}
		if e.Err == context.Canceled {
			e.Kind = Cancelled
		} else if os.IsNotExist(e.Err) {
			e.Kind = InvalidArgument
		}
	}
	return e
}

// Recover recovers any error into an *Error. If the passed-in error is
// already an *Error, it is simply returned; otherwise it is wrapped.
func Recover(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return E(err).(*Error)
}

// Error returns a human readable string describing this error. It
// uses the separator defined by errors.Separator.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b bytes.Buffer
	e.writeError(&b)
	return b.String()
}

func (e *Error) writeError(b *bytes.Buffer) {
	if e.Message != "" {
		pad(b, ": ")
		b.WriteString(e.Message)
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err == nil {
		return
	}
	if err, ok := e.Err.(*Error); ok {
		pad(b, Separator)
		b.WriteString(err.Error())
	} else {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
}

// Unwrap supports errors.Is/errors.As over the standard library's
// errors package.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is tells whether an error has a specified kind, except for the
// indeterminate kind Other. In the case an error has kind Other, the
// chain is traversed until a non-Other error is encountered.
func Is(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	return is(kind, Recover(err))
}

func is(kind Kind, e *Error) bool {
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		if e2, ok := e.Err.(*Error); ok {
			return is(kind, e2)
		}
	}
	return false
}

// Visit calls the given function for every error object in the chain,
// including itself. Recursion stops after the function finds an error
// object of type other than *Error.
func Visit(err error, callback func(err error)) {
	callback(err)
	for {
		next, ok := err.(*Error)
		if !ok {
			break
		}
		err = next.Err
		callback(err)
	}
}

// New is synonymous with errors.New, provided here so that callers
// need only import one errors package.
func New(msg string) error {
	return errors.New(msg)
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}
