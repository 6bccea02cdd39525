// internal/infrastructure/logger/logger_test.go
package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Debug("Debug message", map[string]interface{}{
		"currency": "USD",
	})

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))

	assert.Equal(t, "DEBUG", logEntry["level"])
	assert.Equal(t, "Debug message", logEntry["message"])
	assert.Equal(t, "USD", logEntry["currency"])
	assert.Contains(t, logEntry, "timestamp")
	assert.Contains(t, logEntry["caller"], "logger_test.go")

	// Levels below the threshold are dropped
	buf.Reset()
	warnLogger := NewJSONLogger(&buf, WarnLevel)
	warnLogger.Debug("Should not appear", nil)
	warnLogger.Info("Should not appear either", nil)
	assert.Equal(t, "", buf.String())

	warnLogger.Warn("Warning message", nil)
	assert.Contains(t, buf.String(), "Warning message")

	buf.Reset()
	fieldLogger := logger.WithField("run_id", "run-1")
	fieldLogger.Info("With field", nil)

	logEntry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "run-1", logEntry["run_id"])
	assert.Equal(t, "With field", logEntry["message"])
	assert.Equal(t, "INFO", logEntry["level"])

	buf.Reset()
	fieldsLogger := logger.WithFields(map[string]interface{}{
		"app":     "declare",
		"version": "1.0.0",
	})
	fieldsLogger.Error("With fields", map[string]interface{}{"row": 3})

	logEntry = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "declare", logEntry["app"])
	assert.Equal(t, "1.0.0", logEntry["version"])
	assert.Equal(t, float64(3), logEntry["row"])
	assert.Equal(t, "ERROR", logEntry["level"])
}

func TestWithFieldsEmptyReturnsSameLogger(t *testing.T) {
	logger := NewJSONLogger(&bytes.Buffer{}, InfoLevel)
	assert.Same(t, logger, logger.WithFields(nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestSetDefaultLogger(t *testing.T) {
	originalLogger := GetDefaultLogger()
	defer SetDefaultLogger(originalLogger)

	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))

	Info("through the default", nil)
	assert.Contains(t, buf.String(), "through the default")

	SetDefaultLogger(nil)
	assert.NotNil(t, GetDefaultLogger())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithField("k", "v").Info("discarded", nil)
	})
}
