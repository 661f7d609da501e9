// Package observability provides logging and metrics for labdesc.
package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat represents the logging format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type contextKey int

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = iota
	// LoggerKey is the context key for the request-scoped logger.
	LoggerKey
)

// RequestIDHeader is the HTTP header for request ID propagation.
const RequestIDHeader = "X-Request-ID"

// LoggerConfig holds configuration for the logger.
type LoggerConfig struct {
	Level      LogLevel  `yaml:"level"`
	Format     LogFormat `yaml:"format"`
	OutputPath string    `yaml:"output_path,omitempty"`
}

// ApplyDefaults fills in the level and format when unset.
func (c *LoggerConfig) ApplyDefaults() {
	if c.Level == "" {
		c.Level = LogLevelInfo
	}

	if c.Format == "" {
		c.Format = LogFormatText
	}
}

// DefaultLogger returns a text logger at info level writing to stderr.
func DefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// ConfigureLogger builds a logger from cfg. Unknown levels fall back to info
// and unknown formats to text.
func ConfigureLogger(cfg LoggerConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	switch LogLevel(strings.ToLower(string(cfg.Level))) {
	case LogLevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if LogFormat(strings.ToLower(string(cfg.Format))) == LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	var out io.Writer = os.Stderr

	if cfg.OutputPath != "" {
		file, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		out = file
	}

	logger.SetOutput(out)

	return logger, nil
}

// IsValidLogLevel checks if a log level is valid.
func IsValidLogLevel(level string) bool {
	switch LogLevel(strings.ToLower(level)) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// IsValidLogFormat checks if a log format is valid.
func IsValidLogFormat(format string) bool {
	switch LogFormat(strings.ToLower(format)) {
	case LogFormatText, LogFormatJSON:
		return true
	default:
		return false
	}
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// LoggerFromContext retrieves the request-scoped logger or returns fallback.
func LoggerFromContext(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	if ctx == nil {
		return fallback
	}

	if logger, ok := ctx.Value(LoggerKey).(logrus.FieldLogger); ok {
		return logger
	}

	return fallback
}

// statusRecorder captures the status code and size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n

	return n, err
}

// RequestLogger returns middleware that assigns each request an ID, stores a
// request-scoped logger in its context and logs the completed request.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			reqLog := log.WithField("request_id", requestID)
			w.Header().Set(RequestIDHeader, requestID)

			ctx := WithLogger(WithRequestID(r.Context(), requestID), reqLog)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(ctx))

			entry := reqLog.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"size":        rec.size,
				"duration_ms": time.Since(start).Milliseconds(),
			})

			switch {
			case rec.status >= 500:
				entry.Error("HTTP request error")
			case rec.status >= 400:
				entry.Warn("HTTP request warning")
			default:
				entry.Debug("HTTP request completed")
			}
		})
	}
}
