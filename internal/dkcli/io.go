package dkcli

import (
	"fmt"
	"io"
)

// IO wraps the stdout/stderr writers a command runs against.
type IO struct {
	out    io.Writer
	errOut io.Writer
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Err returns the stderr writer directly, for components (like
// progress.Reporter) that want to own their own writes.
func (o *IO) Err() io.Writer {
	return o.errOut
}

// Out returns the stdout writer directly, for commands that stream
// binary output (e.g. bench) rather than formatted text.
func (o *IO) Out() io.Writer {
	return o.out
}
