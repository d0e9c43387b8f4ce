package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/stockcast/backend/pkg/config"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v (%q)", err, buf.String())
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{"debug level", &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}, zerolog.DebugLevel},
		{"info level", &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"}, zerolog.InfoLevel},
		{"warn level", &config.Config{Env: "staging", LogLevel: "warn", LogFormat: "console"}, zerolog.WarnLevel},
		{"error level", &config.Config{Env: "production", LogLevel: "error", LogFormat: "json"}, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.cfg)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			// Verify global level is set
			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
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
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewWithWriter_ServiceFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}, &buf)

	log.Info("pipeline started")

	entry := decodeEntry(t, &buf)
	if entry["service"] != "stockcast" {
		t.Errorf("Expected service=stockcast, got %v", entry["service"])
	}
	if entry["env"] != "development" {
		t.Errorf("Expected env=development, got %v", entry["env"])
	}
	if entry["message"] != "pipeline started" {
		t.Errorf("Expected message 'pipeline started', got %v", entry["message"])
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer

	// Set global level to debug to capture all logs
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	logger := &Logger{zlog: zerolog.New(&buf).With().Timestamp().Logger()}

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { logger.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { logger.Info("info message") }, "info message", "info"},
		{"warn", func() { logger.Warn("warn message") }, "warn message", "warn"},
		{"error", func() { logger.Error("error message") }, "error message", "error"},
		{"infof", func() { logger.Infof("horizon: %d", 7) }, "horizon: 7", "info"},
		{"warnf", func() { logger.Warnf("symbol %s skipped", "AAPL") }, "symbol AAPL skipped", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decodeEntry(t, &buf)
			if entry["level"] != tt.wantLevel {
				t.Errorf("Expected level %q, got %q", tt.wantLevel, entry["level"])
			}
			if entry["message"] != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, entry["message"])
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := &Logger{zlog: zerolog.New(&buf)}

	logger.WithFields(map[string]interface{}{
		"symbol":        "AAPL",
		"forecast_days": 7,
	}).WithField("model", "lstm").Info("model trained")

	entry := decodeEntry(t, &buf)
	if entry["symbol"] != "AAPL" {
		t.Errorf("Expected symbol=AAPL, got %v", entry["symbol"])
	}
	if entry["forecast_days"] != float64(7) {
		t.Errorf("Expected forecast_days=7, got %v", entry["forecast_days"])
	}
	if entry["model"] != "lstm" {
		t.Errorf("Expected model=lstm, got %v", entry["model"])
	}
}

func TestWithErrorAndRun(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := &Logger{zlog: zerolog.New(&buf)}

	logger.WithRun("run-1", "MSFT").WithError(errors.New("boom")).Error("forecast failed")

	entry := decodeEntry(t, &buf)
	if entry["run_id"] != "run-1" || entry["symbol"] != "MSFT" {
		t.Errorf("Expected run fields, got %v", entry)
	}
	if entry["error"] != "boom" {
		t.Errorf("Expected error=boom, got %v", entry["error"])
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := &Logger{zlog: zerolog.New(&buf)}

	zl := logger.Component("forecast.rollout")
	zl.Debug().Int("step", 3).Msg("step done")

	entry := decodeEntry(t, &buf)
	if entry["component"] != "forecast.rollout" {
		t.Errorf("Expected component=forecast.rollout, got %v", entry["component"])
	}
	if entry["step"] != float64(3) {
		t.Errorf("Expected step=3, got %v", entry["step"])
	}
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().WithField("k", "v").Info("discarded")
}
