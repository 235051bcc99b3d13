// Package logging builds the zerolog loggers used across bulklist and carries
// them, together with a per-invocation trace ID, through context.Context.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Config describes how the process logger should be constructed.
type Config struct {
	// Level is a zerolog level name ("trace" through "fatal"). Unparseable
	// values fall back to "info".
	Level string
	// Format selects "console" (human readable, the default) or "json".
	Format string
	// File, when set, appends JSON logs to the given path in addition to the
	// console writer.
	File string
	// Caller annotates events with file:line of the call site.
	Caller bool
}

// Result is the outcome of NewLogger: the constructed logger plus where it
// ended up writing, so the CLI can tell the user about log files and
// fallbacks.
type Result struct {
	Logger zerolog.Logger
	// UsingFile reports whether a log file was opened successfully.
	UsingFile bool
	// FilePath is the opened log file path when UsingFile is true.
	FilePath string
	// FallbackReason is set when a requested log file could not be opened
	// and logging degraded to the console writer only.
	FallbackReason string

	file *os.File
}

// Close releases the log file handle, if any. Safe to call on a console-only
// result.
func (r *Result) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewLogger constructs a zerolog logger from cfg. It never fails: an
// unparseable level defaults to info, and a log file that cannot be opened
// degrades to console-only output with the reason recorded in the Result.
func NewLogger(cfg Config) Result {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Format == "json" {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	result := Result{}
	if cfg.File != "" {
		logFile, fileErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if fileErr != nil {
			result.FallbackReason = fileErr.Error()
		} else {
			result.UsingFile = true
			result.FilePath = cfg.File
			result.file = logFile
			writers = append(writers, logFile)
		}
	}

	logCtx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp()
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}
	result.Logger = logCtx.Logger().Hook(TraceIDHook{})
	return result
}

// ComponentLogger returns a child logger tagged with the given component name.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// FromContext returns the logger attached to ctx, or a disabled logger when
// none was attached. Library code logs through this so callers control the
// sink.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

type traceIDKey struct{}

// ContextWithTraceID returns a context carrying the given trace ID.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext extracts the trace ID from ctx, if one is present.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(traceIDKey{}).(string)
	return traceID, ok && traceID != ""
}

// GetOrGenerateTraceID returns the trace ID already carried by ctx, or a
// fresh ULID when ctx has none.
func GetOrGenerateTraceID(ctx context.Context) string {
	if traceID, ok := TraceIDFromContext(ctx); ok {
		return traceID
	}
	return NewID()
}

// NewID returns a fresh ULID string. Used for trace IDs and dispatch IDs;
// ULIDs sort by creation time, which keeps log searches cheap.
func NewID() string {
	return ulid.Make().String()
}

// TraceIDHook injects the context trace ID into every event logged with
// Ctx(ctx), so all lines from one invocation share a trace_id field.
type TraceIDHook struct{}

// Run implements zerolog.Hook.
func (TraceIDHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if traceID, ok := TraceIDFromContext(ctx); ok {
		e.Str("trace_id", traceID)
	}
}
