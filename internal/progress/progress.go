// Package progress renders advisory, carriage-returned progress lines
// for long-running kernel operations (principally a combined-index
// merge), gated on stderr being a TTY.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ForceEnvVar names the environment variable that forces TTY mode on,
// regardless of what stderr actually is. Tests that want to observe
// progress output without a real terminal set this.
const ForceEnvVar = "DUPKERNEL_FORCE_TTY"

var isTTY = detectTTY()

func detectTTY() bool {
	if os.Getenv(ForceEnvVar) != "" {
		return true
	}

	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// Reporter writes a carriage-returned progress line to w every interval
// calls to Report, only when stderr was detected as a TTY (or overridden
// via ForceEnvVar) at process start.
type Reporter struct {
	w        io.Writer
	interval uint64
	label    string
}

// NewReporter returns a Reporter that prints to w, labelled label, once
// per interval reports. An interval of 0 is treated as 1.
func NewReporter(w io.Writer, label string, interval uint64) *Reporter {
	if interval == 0 {
		interval = 1
	}

	return &Reporter{w: w, interval: interval, label: label}
}

// Report implements midx.Progress. It is a no-op unless stderr is a TTY
// (or overridden) and processed is a multiple of the configured
// interval or equals total, matching the kernel's "advisory only" progress contract.
func (r *Reporter) Report(processed, total uint64) {
	if !isTTY {
		return
	}

	if processed%r.interval != 0 && processed != total {
		return
	}

	fmt.Fprintf(r.w, "\r%s: %d/%d", r.label, processed, total)
}
