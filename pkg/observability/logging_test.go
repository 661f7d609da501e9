package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    LoggerConfig
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{
			name:      "debug level",
			config:    LoggerConfig{Level: LogLevelDebug, Format: LogFormatText},
			wantLevel: logrus.DebugLevel,
		},
		{
			name:      "upper case level",
			config:    LoggerConfig{Level: "WARN", Format: LogFormatText},
			wantLevel: logrus.WarnLevel,
		},
		{
			name:      "error level json",
			config:    LoggerConfig{Level: LogLevelError, Format: LogFormatJSON},
			wantLevel: logrus.ErrorLevel,
			wantJSON:  true,
		},
		{
			name:      "default level for invalid",
			config:    LoggerConfig{Level: "invalid"},
			wantLevel: logrus.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := ConfigureLogger(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.Level)

			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestConfigureLoggerWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labdesc.log")

	logger, err := ConfigureLogger(LoggerConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatText,
		OutputPath: path,
	})
	require.NoError(t, err)

	logger.Info("test message")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "test message")
}

func TestLoggerConfigApplyDefaults(t *testing.T) {
	cfg := LoggerConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, LogLevelInfo, cfg.Level)
	assert.Equal(t, LogFormatText, cfg.Format)
}

func TestIsValidLogLevel(t *testing.T) {
	assert.True(t, IsValidLogLevel("debug"))
	assert.True(t, IsValidLogLevel("ERROR"))
	assert.False(t, IsValidLogLevel("trace"))
	assert.False(t, IsValidLogLevel(""))
}

func TestIsValidLogFormat(t *testing.T) {
	assert.True(t, IsValidLogFormat("json"))
	assert.True(t, IsValidLogFormat("TEXT"))
	assert.False(t, IsValidLogFormat("xml"))
}

func TestLoggerFromContext(t *testing.T) {
	fallback := logrus.New()

	//nolint:staticcheck // nil context is part of the contract.
	assert.Equal(t, fallback, LoggerFromContext(nil, fallback))

	ctx := context.Background()
	assert.Equal(t, fallback, LoggerFromContext(ctx, fallback))

	scoped := logrus.New()
	ctx = WithLogger(ctx, scoped)
	assert.Equal(t, scoped, LoggerFromContext(ctx, fallback))
}

func TestRequestLogger(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var seenID string

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		assert.NotNil(t, LoggerFromContext(r.Context(), nil))
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Len(t, seenID, 36, "request ID should be a UUID")
	assert.Equal(t, seenID, rr.Header().Get(RequestIDHeader))
}

func TestRequestLoggerKeepsExistingID(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "existing-request-id", rr.Header().Get(RequestIDHeader))
}

func TestObserveLoad(t *testing.T) {
	before := testutil.ToFloat64(DescriptorLoadsTotal.WithLabelValues(LoadResultSchemaError))

	ObserveLoad(LoadResultSchemaError, 2*time.Millisecond)

	after := testutil.ToFloat64(DescriptorLoadsTotal.WithLabelValues(LoadResultSchemaError))
	assert.InDelta(t, before+1, after, 0.0001)
}
