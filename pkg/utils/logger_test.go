package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelInfo, &buf)

	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)
	logger.Warn("warned")
	logger.Error("failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[WARN] warned")
	assert.Contains(t, out, "[ERROR] failed")
}

func TestDefaultLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelError, &buf)

	logger.Info("dropped")
	logger.SetLevel(LevelDebug)
	logger.Debug("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestDefaultLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LevelInfo, &buf)

	scoped := logger.WithField("phase", "node decode")
	scoped.Info("decoded %d nodes", 10)

	assert.Contains(t, buf.String(), "phase=node decode")

	// The parent logger must not inherit the field.
	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "phase=")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLogLevel("bogus"))
}

func TestNullLogger(t *testing.T) {
	var logger Logger = &NullLogger{}
	assert.NotPanics(t, func() {
		logger.Debug("a")
		logger.Info("b")
		logger.Warn("c")
		logger.Error("d")
		logger.WithField("k", "v").Info("e")
	})
}
