// Package log provides the leveled logging used across the codec's
// per-property pipeline: every encrypt/decrypt stage logs entry/exit
// at Debug and failures at Error, and never logs plaintext or key
// material, only the path a property lives at. Log output is
// implemented by an outputter, which by default writes through Go's
// standard log package; a caller embedding this codec in a larger
// service can install its own Outputter via SetOutputter to route
// these lines into its own logging pipeline instead.
//
// Unlike a general-purpose logging package, this one does not expose
// a flag-driven level switch or a bridge to the full stdlib log.Logger
// surface: the codec is a library, and the one place verbosity is
// chosen is the CLI demo's own flag (see cmd/fieldcryptctl), via
// SetLevel.
package log

import (
	"fmt"
	"os"
)

// An Outputter provides a destination for leveled log output.
type Outputter interface {
	// Level returns the level at which the outputter is accepting
	// messages.
	Level() Level

	// Output writes the provided message to the outputter at the
	// provided calldepth and level. The message is dropped by
	// the outputter if it is not logging at the desired level.
	Output(calldepth int, level Level, s string) error
}

var out Outputter = gologOutputter{}

// SetOutputter provides a new outputter for use in the log package.
// SetOutputter should not be called concurrently with any log
// output, and is thus suitable to be called only upon program
// initialization. SetOutputter returns the old outputter.
func SetOutputter(newOut Outputter) Outputter {
	old := out
	out = newOut
	return old
}

// GetOutputter returns the current outputter used by the log package.
func GetOutputter() Outputter {
	return out
}

// At returns whether the logger is currently logging at the provided level.
func At(level Level) bool {
	return level <= out.Level()
}

// A Level is a log verbosity level. Increasing levels decrease in
// priority and (usually) increase in verbosity: if the outputter is
// logging at level L, then all messages with level M <= L are
// outputted.
type Level int

const (
	// Off never outputs messages.
	Off = Level(-3)
	// Error outputs error messages: a request that failed validation,
	// key lookup, or decryption.
	Error = Level(-2)
	// Info outputs informational messages. This is the standard
	// logging level.
	Info = Level(0)
	// Debug outputs per-property pipeline stage messages (entry/exit
	// of encryptValue/decryptValue and the paths a request touches),
	// not intended for regular users.
	Debug = Level(1)
)

// String returns the string representation of the level l.
func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		if l < 0 {
			panic("invalid log level")
		}
		return fmt.Sprintf("debug%d", l)
	}
}

// Printf formats a message in the manner of fmt.Sprintf and outputs
// it at level l to the current outputter.
func (l Level) Printf(format string, v ...interface{}) {
	if At(l) {
		out.Output(2, l, fmt.Sprintf(format, v...))
	}
}

// Fatalf formats a message in the manner of fmt.Sprintf, outputs it at
// the error level to the current outputter and then calls
// os.Exit(1). Used only by the cmd/fieldcryptctl demo; the core codec
// never exits the process.
func Fatalf(format string, v ...interface{}) {
	out.Output(2, Error, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Property formats a path the way every per-property Debug/Error log
// line in doccrypt names it, so a reader greping logs for one path
// sees a consistent field across every pipeline stage.
func Property(path string) string {
	return fmt.Sprintf("path=%s", path)
}
