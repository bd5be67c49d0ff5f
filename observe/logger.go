package observe

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown names map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// writerSink serializes writes from every logger derived from one root.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *writerSink) writeLine(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(append(data, '\n'))
}

// structuredLogger writes one JSON object per line.
type structuredLogger struct {
	level LogLevel
	sink  *writerSink
	attrs map[string]any
	now   func() time.Time
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &structuredLogger{
		level: ParseLogLevel(level),
		sink:  &writerSink{w: w},
		attrs: map[string]any{},
		now:   time.Now,
	}
}

// WithOperation returns a logger that stamps every entry with the
// operation's service and name.
func (l *structuredLogger) WithOperation(meta OperationMeta) Logger {
	attrs := maps.Clone(l.attrs)
	attrs["rpc.method"] = meta.Operation
	if meta.Service != "" {
		attrs["rpc.service"] = meta.Service
	}
	if meta.Version != "" {
		attrs["service.version"] = meta.Version
	}
	return &structuredLogger{
		level: l.level,
		sink:  l.sink,
		attrs: attrs,
		now:   l.now,
	}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *structuredLogger) log(_ context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.attrs)+len(fields)+3)
	maps.Copy(entry, l.attrs)
	for _, f := range fields {
		if isRedactedField(f.Key) {
			entry[f.Key] = "[REDACTED]"
			continue
		}
		entry[f.Key] = f.Value
	}
	entry["timestamp"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.sink.writeLine(data)
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, strings.ToLower(key))
}

var _ Logger = (*structuredLogger)(nil)
