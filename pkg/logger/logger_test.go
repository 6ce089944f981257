package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLoggerFunctions_NilSafe(t *testing.T) {
	logger = nil

	assert.NotPanics(t, func() {
		Debug("test debug", "key", "value")
		Info("test info", "key", "value")
		Warn("test warn")
		Error("test error", "code", 500)
	})
}

func TestSetup_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, log.WarnLevel)
	defer func() { logger = nil }()

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "table", "posts")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "table=posts")
	assert.Same(t, logger, GetLogger())
}
