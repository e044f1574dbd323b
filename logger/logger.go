package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/exgaso/armory-http/pkg/utils"
)

const (
	StatusCodeKey string = "statusCode"
)

// Handler decorates a tint handler with the request ID carried in the
// context, so every log line of a transfer can be correlated.
type Handler struct {
	slog.Handler
}

func NewHandler(w io.Writer) *Handler {
	return &Handler{
		Handler: tint.NewHandler(
			w,
			&tint.Options{
				Level: slog.LevelInfo,
			},
		),
	}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	reqId, ok := ctx.Value(utils.RequestIDKey).(string)

	if !ok {
		return h.Handler.Handle(ctx, r)
	}

	r.AddAttrs(slog.String(string(utils.RequestIDKey), reqId))

	return h.Handler.Handle(ctx, r)
}

// Setup installs the default logger. With a file path the log goes to a
// size-rotated file; otherwise to stderr. quiet discards everything not
// bound for a file, which keeps the TUI's screen clean.
func Setup(file string, quiet bool) {
	var w io.Writer = os.Stderr

	switch {
	case file != "":
		w = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	case quiet:
		w = io.Discard
	}

	slog.SetDefault(slog.New(NewHandler(w)))
}
