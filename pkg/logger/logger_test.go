package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return &Logger{zlog: zerolog.New(buf).With().Timestamp().Logger()}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse log output")
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"}, &buf)
			require.NotNil(t, log)
			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { log.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { log.Info("info message") }, "info message", "info"},
		{"warnf", func() { log.Warnf("retry attempt: %d", 3) }, "retry attempt: 3", "warn"},
		{"errorf", func() { log.Errorf("failed: %s", "timeout") }, "failed: timeout", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.WithFields(map[string]interface{}{
		"series_count": 12,
		"stage":        6,
	}).WithField("run_id", "run_1").Info("classification completed")

	entry := decode(t, &buf)
	assert.Equal(t, float64(12), entry["series_count"])
	assert.Equal(t, float64(6), entry["stage"])
	assert.Equal(t, "run_1", entry["run_id"])
}

func TestComponentAndSeries(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.Component("s3_sector").WithSeries("sector", "SECTOR_TECHNOLOGY").Warn("low coverage")

	entry := decode(t, &buf)
	assert.Equal(t, "s3_sector", entry["module"])
	assert.Equal(t, "sector", entry["series_kind"])
	assert.Equal(t, "SECTOR_TECHNOLOGY", entry["series_id"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.WithError(errors.New("duplicate date")).Error("series rejected")

	entry := decode(t, &buf)
	assert.Equal(t, "duplicate date", entry["error"])
	assert.Equal(t, "series rejected", entry["message"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "test", LogLevel: "info", LogFormat: "console"}, &buf)

	log.Info("test message")

	assert.True(t, strings.Contains(buf.String(), "test message"))
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().WithField("k", "v").Info("discarded")
}
