package errors

import (
	"log/slog"
)

// LogHandler is an ErrorHandler that writes through a structured logger.
type LogHandler struct {
	// Logger receives the records. slog.Default() is used when nil.
	Logger *slog.Logger
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// HandleError logs a ReconcileError.
func (h *LogHandler) HandleError(err *ReconcileError) {
	if err == nil {
		return
	}
	attrs := []any{"op", err.Op, "kind", err.Kind.String(), "err", err.Err}
	if err.Node != 0 {
		attrs = append(attrs, "node", err.Node)
	}
	if err.State != "" {
		attrs = append(attrs, "state", err.State)
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, "stack", err.StackTrace)
	}
	h.logger().Error("recompose error", attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []any{"value", err.Value}
	if err.Op != "" {
		attrs = append(attrs, "op", err.Op)
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, "stack", err.StackTrace)
	}
	h.logger().Error("recompose panic", attrs...)
}
