// Package progress renders per-transfer progress on the operator's console.
// Reporting is observation only: a Reporter never fails and never affects
// the transfer feeding it.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UnknownTotal marks a transfer whose final size is not known up front,
// e.g. a multipart upload where Content-Length covers the envelope rather
// than the file bytes.
const UnknownTotal int64 = -1

type Direction int

const (
	Outbound Direction = iota // server to client
	Inbound                   // client to server
)

func (d Direction) String() string {
	if d == Inbound {
		return "receiving"
	}
	return "sending"
}

// Reporter tracks one transfer. Report is called with the cumulative byte
// count after each chunk, then exactly one of Finish or Abort: Finish when
// the transfer ran to completion, Abort when it was cut short.
type Reporter interface {
	Report(transferred int64)
	Finish()
	Abort()
}

// Factory hands out one Reporter per transfer. total may be UnknownTotal.
type Factory interface {
	NewTransfer(name string, total int64, dir Direction) Reporter
}

const logInterval = 500 * time.Millisecond // fallback log cadence when the console can't redraw

// Console renders a live progress bar when its writer is a terminal and
// falls back to periodic line-by-line logging otherwise.
type Console struct {
	w        io.Writer
	bar      bool
	interval time.Duration
}

func NewConsole(w io.Writer) *Console {
	bar := false
	if f, ok := w.(*os.File); ok {
		bar = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{w: w, bar: bar, interval: logInterval}
}

func (c *Console) NewTransfer(name string, total int64, dir Direction) Reporter {
	if c.bar {
		return &barReporter{bar: newBar(c.w, name, total, dir), w: c.w}
	}
	return &logReporter{
		name:     name,
		total:    total,
		dir:      dir,
		interval: c.interval,
		lastAt:   time.Now(),
	}
}

func newBar(w io.Writer, name string, total int64, dir Direction) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", dir, name)),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

type barReporter struct {
	bar *progressbar.ProgressBar
	w   io.Writer
}

func (r *barReporter) Report(transferred int64) {
	_ = r.bar.Set64(transferred)
}

func (r *barReporter) Finish() {
	_ = r.bar.Finish()
}

// Abort stops the bar where it stands instead of filling it to 100%.
func (r *barReporter) Abort() {
	_ = r.bar.Exit()
	fmt.Fprintln(r.w)
}

// logReporter is the dumb-medium fallback: one log line every interval.
type logReporter struct {
	name        string
	total       int64
	dir         Direction
	interval    time.Duration
	transferred int64
	lastAt      time.Time
}

func (r *logReporter) Report(transferred int64) {
	r.transferred = transferred
	if time.Since(r.lastAt) < r.interval {
		return
	}
	r.lastAt = time.Now()
	r.log("transfer progress")
}

func (r *logReporter) Finish() {
	r.log("transfer finished")
}

func (r *logReporter) Abort() {
	r.log("transfer aborted")
}

func (r *logReporter) log(msg string) {
	attrs := []any{
		"name", r.name,
		"direction", r.dir.String(),
		"transferred", r.transferred,
	}
	if r.total >= 0 {
		pct := float64(0)
		if r.total > 0 {
			pct = float64(r.transferred) / float64(r.total) * 100
		}
		attrs = append(attrs, "total", r.total, "percent", fmt.Sprintf("%.1f", pct))
	}
	slog.Info(msg, attrs...)
}

// Discard is used when something else owns the terminal, like the TUI.
type Discard struct{}

func (Discard) NewTransfer(string, int64, Direction) Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) Report(int64) {}
func (nopReporter) Finish()      {}
func (nopReporter) Abort()       {}
