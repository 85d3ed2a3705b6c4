package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("что-то"), "неизвестный уровень должен давать INFO")
}

func TestWriterLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("test", &buf, WARN)

	l.Info("не должно попасть")
	l.Warn("peer %s отключен", "a:1")

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [test] peer a:1 отключен")
}

func TestLoggerManager_ReusesComponentLogger(t *testing.T) {
	lm := GetLoggerManager()
	a := lm.MustGetLogger("unit")
	b := lm.MustGetLogger("unit")
	assert.Same(t, a, b)
	assert.Same(t, GetStorageLogger(), lm.MustGetLogger(ComponentStorage))
}

func TestLoggerManager_CloseAllForgetsLoggers(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a := lm.MustGetLogger("closing")
	assert.NoError(t, lm.CloseAll())

	b := lm.MustGetLogger("closing")
	assert.NotSame(t, a, b)
}
