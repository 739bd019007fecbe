// Package logger emits one JSON object per line so log collectors can ingest
// entries without extra parsing.
package logger

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Fields carries structured key/value pairs attached to a log entry.
type Fields map[string]any

type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	RequestID string    `json:"request_id,omitempty"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Fields    Fields    `json:"fields,omitempty"`
}

type contextKey string

// RequestIDKey carries the per-request id through context.
const RequestIDKey contextKey = "request_id"

type jsonLogger struct {
	mu      sync.Mutex
	service string
	out     io.Writer
}

var defaultLogger *jsonLogger

// Init configures the process-wide logger. Call once at startup.
func Init(serviceName string) {
	defaultLogger = &jsonLogger{service: serviceName, out: os.Stdout}
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	if defaultLogger != nil {
		defaultLogger.out = w
	}
}

func (l *jsonLogger) write(level string, ctx context.Context, message string, err error, fields Fields) {
	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Service:   l.service,
		Message:   message,
		Fields:    fields,
	}
	if ctx != nil {
		if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
			e.RequestID = id
		}
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		log.Printf("log marshal failed: %v (message: %s)", marshalErr, message)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(data, '\n'))
}

func emit(level string, ctx context.Context, message string, err error, fields []Fields) {
	if defaultLogger == nil {
		if err != nil {
			log.Printf("%s: %s: %v", level, message, err)
		} else {
			log.Printf("%s: %s", level, message)
		}
		return
	}
	var f Fields
	if len(fields) > 0 {
		f = fields[0]
	}
	defaultLogger.write(level, ctx, message, err, f)
}

// Debug logs at debug level.
func Debug(ctx context.Context, message string, fields ...Fields) {
	emit("debug", ctx, message, nil, fields)
}

// Info logs at info level.
func Info(ctx context.Context, message string, fields ...Fields) {
	emit("info", ctx, message, nil, fields)
}

// Warn logs at warn level.
func Warn(ctx context.Context, message string, fields ...Fields) {
	emit("warn", ctx, message, nil, fields)
}

// Error logs at error level with the causing error attached.
func Error(ctx context.Context, message string, err error, fields ...Fields) {
	emit("error", ctx, message, err, fields)
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
