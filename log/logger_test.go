/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// logToBuffer runs fn against a logger writing to a buffer and returns what was written after the logger is closed.
func logToBuffer(t *testing.T, cfg *Config, fn func(logger FieldLogger)) string {
	t.Helper()
	var buf bytes.Buffer
	logger, closeFn := newLogger(cfg, &buf)
	fn(logger)
	closeFn()
	return buf.String()
}

func decodeJSONLines(t *testing.T, s string) []map[string]interface{} {
	t.Helper()
	var res []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		res = append(res, entry)
	}
	return res
}

func TestJSONFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	out := logToBuffer(t, cfg, func(logger FieldLogger) {
		logger = logger.With(String("component", "scheduler"))
		logger.Debug("window check")
		logger.Info("request admitted", String("priority", "high"), Int("attempt", 1))
		logger.Warnf("request %s throttled", "req-1")
		logger.Error("request failed", Error(errors.New("connection reset")))
	})

	entries := decodeJSONLines(t, out)
	require.Len(t, entries, 3, "debug entry must be filtered out at info level")

	require.Equal(t, "info", entries[0]["level"])
	require.Equal(t, "request admitted", entries[0]["msg"])
	require.Equal(t, "high", entries[0]["priority"])
	require.Equal(t, float64(1), entries[0]["attempt"])
	require.Equal(t, "scheduler", entries[0]["component"])
	require.Equal(t, float64(os.Getpid()), entries[0]["pid"])
	require.NotEmpty(t, entries[0]["time"])

	require.Equal(t, "warn", entries[1]["level"])
	require.Equal(t, "request req-1 throttled", entries[1]["msg"])

	require.Equal(t, "error", entries[2]["level"])
	require.Equal(t, "connection reset", entries[2]["error"])
}

func TestTextFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = FormatText
	cfg.NoColor = true
	out := logToBuffer(t, cfg, func(logger FieldLogger) {
		logger.AtLevel(LevelError, func(logFunc LogFunc) {
			logFunc("dispatch failed", Error(errors.New("connection timeout")))
		})
	})

	require.Contains(t, out, "|ERRO|")
	require.Contains(t, out, " dispatch failed ")
	require.Contains(t, out, `error="connection timeout"`)
	require.Contains(t, out, fmt.Sprintf("pid=%d", os.Getpid()))
}

func TestFormattedMessagesAreLazy(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = LevelWarn
	calls := 0
	arg := stringerFunc(func() string {
		calls++
		return "req-1"
	})
	out := logToBuffer(t, cfg, func(logger FieldLogger) {
		logger.Debugf("queued %s", arg)
		logger.Infof("admitted %s", arg)
		logger.Errorf("failed %s", arg)
	})
	require.Equal(t, 1, calls)
	entries := decodeJSONLines(t, out)
	require.Len(t, entries, 1)
	require.Equal(t, "failed req-1", entries[0]["msg"])
}

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }

func TestWithLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = LevelDebug
	out := logToBuffer(t, cfg, func(logger FieldLogger) {
		warnLogger := logger.WithLevel(LevelWarn)
		warnLogger.Info("admission capacities restored")
		warnLogger.Warn("request throttled, retry scheduled")
		logger.Debug("short window trimmed")
	})
	require.NotContains(t, out, "admission capacities restored")
	require.Contains(t, out, "request throttled, retry scheduled")
	require.Contains(t, out, "short window trimmed")
}

func TestAddCaller(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AddCaller = true
	out := logToBuffer(t, cfg, func(logger FieldLogger) {
		logger.Info("with caller")
	})
	entries := decodeJSONLines(t, out)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0]["caller"], "logger_test.go")
}

func TestDisabledLogger(t *testing.T) {
	logger := NewDisabledLogger()
	logger.With(String("k", "v")).Error("dropped")
	logger.AtLevel(LevelError, func(LogFunc) {
		t.Fatal("must not be called for disabled logger")
	})
}

func TestLoggerToStdout(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	logger, closeFn := NewLogger(NewDefaultConfig())
	logger.Info("scheduler started")
	closeFn()
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	entries := decodeJSONLines(t, buf.String())
	require.Len(t, entries, 1)
	require.Equal(t, "scheduler started", entries[0]["msg"])
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Level = LevelDebug
	cfg.Output = OutputFile
	cfg.File.Path = filepath.Join(dir, "apisched-{{pid}}.log")

	logger, closeFn := NewLogger(cfg)
	logger.Debug("request dispatched", String("priority", "high"), DurationIn(1500*time.Millisecond, time.Millisecond))
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, "apisched-"+strconv.Itoa(os.Getpid())+".log"))
	require.NoError(t, err)
	entries := decodeJSONLines(t, string(data))
	require.Len(t, entries, 1)
	require.Equal(t, "debug", entries[0]["level"])
	require.Equal(t, "request dispatched", entries[0]["msg"])
	require.Equal(t, "high", entries[0]["priority"])
	require.Equal(t, float64(1500), entries[0]["duration"])
}

func TestResolvePlaceholders(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	require.Equal(t,
		fmt.Sprintf("/var/log/apisched-202503140926-%d.log", os.Getpid()),
		resolvePlaceholders("/var/log/apisched-{{starttime}}-{{pid}}.log", start))
	require.Equal(t, "plain.log", resolvePlaceholders("plain.log", start))
}
