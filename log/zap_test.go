// MIT License
//
// Copyright (c) 2025-2026 Taskmill Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logLine is the shape of a single JSON log record.
type logLine struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func parseLine(t *testing.T, buffer *bytes.Buffer) logLine {
	t.Helper()
	var line logLine
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &line))
	return line
}

func TestZap(t *testing.T) {
	t.Run("With info logging", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)

		logger.Info("test info")
		line := parseLine(t, buffer)
		assert.Equal(t, "test info", line.Msg)
		assert.Equal(t, "info", line.Level)
		assert.Equal(t, InfoLevel, logger.LogLevel())
	})
	t.Run("With formatted logging", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)

		logger.Warnf("count=%d", 42)
		line := parseLine(t, buffer)
		assert.Equal(t, "count=42", line.Msg)
		assert.Equal(t, "warn", line.Level)
	})
	t.Run("With error logging", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)

		logger.Error("it broke")
		line := parseLine(t, buffer)
		assert.Equal(t, "it broke", line.Msg)
		assert.Equal(t, "error", line.Level)
	})
	t.Run("With messages below the level suppressed", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)

		logger.Debug("hidden")
		logger.Info("hidden")
		logger.Warn("hidden")
		assert.Zero(t, buffer.Len())
	})
	t.Run("With debug level enabling everything", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buffer)

		logger.Debugf("detail %s", "x")
		line := parseLine(t, buffer)
		assert.Equal(t, "detail x", line.Msg)
		assert.Equal(t, "debug", line.Level)
		assert.Equal(t, DebugLevel, logger.LogLevel())
	})
	t.Run("With outputs exposed", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		require.Len(t, logger.LogOutput(), 1)
	})
}

func TestDiscardLogger(t *testing.T) {
	// every method must be a no-op
	DiscardLogger.Debug("x")
	DiscardLogger.Debugf("%s", "x")
	DiscardLogger.Info("x")
	DiscardLogger.Infof("%s", "x")
	DiscardLogger.Warn("x")
	DiscardLogger.Warnf("%s", "x")
	DiscardLogger.Error("x")
	DiscardLogger.Errorf("%s", "x")
	assert.Len(t, DiscardLogger.LogOutput(), 1)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARNING", WarningLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Empty(t, InvalidLevel.String())
}
