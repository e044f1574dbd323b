package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestUpdateQuitsOnServerError(t *testing.T) {
	m := newModel(nil)
	bindErr := errors.New("listen tcp :8080: address already in use")

	next, cmd := m.Update(serverErrMsg{err: bindErr})

	got, ok := next.(model)
	if !ok {
		t.Fatalf("expected model, got %T", next)
	}
	if got.fatal != bindErr {
		t.Errorf("fatal = %v, want %v", got.fatal, bindErr)
	}
	if cmd == nil {
		t.Fatal("expected a quit command, got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg, got %T", cmd())
	}
}

func TestHumanizeBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
		{3 << 30, "3.0 GB"},
		{1 << 40, "1.0 TB"},
		{1 << 50, "1.0 PB"},
		{4 << 60, "4.0 EB"},
	}
	for _, tt := range tests {
		if got := humanizeBytes(tt.n); got != tt.want {
			t.Errorf("humanizeBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
