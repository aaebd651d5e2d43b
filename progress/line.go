package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// LineRenderer prints one line per change. It is used when output is not a
// terminal or when --plain is given.
type LineRenderer struct {
	mu  sync.Mutex
	out io.Writer

	active *color.Color
	done   *color.Color
	failed *color.Color
	dim    *color.Color
}

// NewLineRenderer writes to out. With noColor the output has no escape codes.
func NewLineRenderer(out io.Writer, noColor bool) *LineRenderer {
	r := &LineRenderer{
		out:    out,
		active: color.New(color.FgCyan),
		done:   color.New(color.FgGreen, color.Bold),
		failed: color.New(color.FgRed, color.Bold),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.active, r.done, r.failed, r.dim} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return r
}

// Start implements Renderer.
func (r *LineRenderer) Start() error { return nil }

// Stop implements Renderer.
func (r *LineRenderer) Stop() error { return nil }

// Update prints the row. Pending rows are skipped; they carry no message yet.
func (r *LineRenderer) Update(row Row) {
	if row.Status == StatusPending {
		return
	}

	prefix := r.dim.Sprintf("[%d]", row.Index+1)
	var line string
	switch row.Status {
	case StatusDone:
		line = r.done.Sprint(row.Message)
	case StatusFailed:
		line = r.failed.Sprint("✗ " + row.Message)
	default:
		line = r.active.Sprint(row.Message)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s\n", prefix, line)
}

var _ Renderer = (*LineRenderer)(nil)
