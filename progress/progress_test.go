package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleFallsBackWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	r := c.NewTransfer("sample.txt", 10, Outbound)
	if _, ok := r.(*logReporter); !ok {
		t.Fatalf("expected log fallback for non-terminal writer, got %T", r)
	}
}

func TestLogReporterEmitsFinalTotal(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r := &logReporter{
		name:   "sample.txt",
		total:  100,
		dir:    Outbound,
		lastAt: time.Now().Add(-time.Second),
	}

	for _, n := range []int64{25, 50, 100} {
		r.Report(n)
	}
	r.Finish()

	out := buf.String()
	if !strings.Contains(out, "transferred=100") {
		t.Errorf("final log line missing transferred=100:\n%s", out)
	}
	if !strings.Contains(out, "percent=100.0") {
		t.Errorf("final log line missing percent=100.0:\n%s", out)
	}
	if !strings.Contains(out, "transfer finished") {
		t.Errorf("missing finish message:\n%s", out)
	}
}

func TestLogReporterUnknownTotalOmitsPercent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r := &logReporter{
		name:   "incoming.bin",
		total:  UnknownTotal,
		dir:    Inbound,
		lastAt: time.Now().Add(-time.Second),
	}
	r.Report(4096)
	r.Finish()

	out := buf.String()
	if strings.Contains(out, "percent=") {
		t.Errorf("unknown-total transfer must not log a percentage:\n%s", out)
	}
	if !strings.Contains(out, "transferred=4096") {
		t.Errorf("missing byte counter:\n%s", out)
	}
}

func TestLogReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r := &logReporter{
		name:     "sample.txt",
		total:    100,
		interval: time.Hour,
		lastAt:   time.Now(),
	}
	for i := int64(1); i <= 50; i++ {
		r.Report(i)
	}

	if got := strings.Count(buf.String(), "transfer progress"); got != 0 {
		t.Errorf("expected reports inside the interval to be suppressed, got %d lines", got)
	}
}

func TestBarReporterRendersCompletion(t *testing.T) {
	var buf bytes.Buffer
	r := &barReporter{bar: newBar(&buf, "sample.txt", 10, Outbound)}

	r.Report(5)
	r.Report(10)
	r.Finish()

	out := buf.String()
	if !strings.Contains(out, "sample.txt") {
		t.Errorf("bar output missing transfer name:\n%q", out)
	}
	if !strings.Contains(out, "100%") {
		t.Errorf("bar output missing completion percentage:\n%q", out)
	}
}

func TestBarReporterAbortKeepsPartialState(t *testing.T) {
	var buf bytes.Buffer
	r := &barReporter{bar: newBar(&buf, "sample.txt", 10, Outbound), w: &buf}

	r.Report(5)
	r.Abort()

	if strings.Contains(buf.String(), "100%") {
		t.Errorf("aborted transfer must not render as complete:\n%q", buf.String())
	}
}

func TestLogReporterAbort(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r := &logReporter{
		name:   "sample.txt",
		total:  100,
		dir:    Outbound,
		lastAt: time.Now().Add(-time.Second),
	}
	r.Report(40)
	r.Abort()

	out := buf.String()
	if !strings.Contains(out, "transfer aborted") {
		t.Errorf("missing abort message:\n%s", out)
	}
	if strings.Contains(out, "transfer finished") {
		t.Errorf("aborted transfer must not log as finished:\n%s", out)
	}
}

func TestDiscardReporterIsSilent(t *testing.T) {
	r := Discard{}.NewTransfer("anything", 10, Inbound)
	r.Report(5)
	r.Report(10)
	r.Finish()
}

func TestDirectionString(t *testing.T) {
	if Outbound.String() != "sending" {
		t.Errorf("Outbound = %q", Outbound.String())
	}
	if Inbound.String() != "receiving" {
		t.Errorf("Inbound = %q", Inbound.String())
	}
}
