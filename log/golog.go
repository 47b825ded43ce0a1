package log

import (
	golog "log"
)

var golevel = Info

// SetLevel sets the log level for the default Go standard logger
// outputter. cmd/fieldcryptctl calls this from its -debug flag so a
// demo run can show the per-property pipeline stage logging described
// in the package doc; a host embedding the codec with its own
// Outputter does not need it.
func SetLevel(level Level) {
	golevel = level
}

// gologOutputter is the default Outputter, bridging to Go's standard
// log package.
type gologOutputter struct{}

func (gologOutputter) Level() Level { return golevel }

func (gologOutputter) Output(calldepth int, level Level, s string) error {
	if golevel < level {
		return nil
	}
	return golog.Output(calldepth+1, s)
}
