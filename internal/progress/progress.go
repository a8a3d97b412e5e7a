package progress

import (
	"fmt"
	"io"
	"os"
)

// Reporter prints a single-line progress indicator that overwrites
// itself on each update, for long-running bulk reads and writes.
type Reporter struct {
	label string
	out   io.Writer
}

// New returns a Reporter labelled with the given activity. A nil out
// defaults to standard output.
func New(label string, out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{label: label, out: out}
}

// Update rewrites the progress line to show done out of total items.
// Its signature matches the progress hooks in pkg/imgio, so a method
// value can be passed directly as the callback.
func (r *Reporter) Update(done, total int) {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	fmt.Fprintf(r.out, "\r%s: %d/%d (%.1f%%)", r.label, done, total, pct)
}

// Finish terminates the progress line.
func (r *Reporter) Finish() {
	fmt.Fprintln(r.out) // New line after progress
}
