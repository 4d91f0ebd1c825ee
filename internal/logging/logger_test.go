package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, GetLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, GetLevel("DEBUG"))
	assert.Equal(t, logrus.ErrorLevel, GetLevel("error"))
	assert.Equal(t, logrus.TraceLevel, GetLevel("trace"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("warn"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("info"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("whatever"))
}

func TestSetup_LogFile(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	logPath := filepath.Join(t.TempDir(), "fittrack")
	Setup(LoggerSetupParams{
		LogFileName: logPath,
		LogLevel:    "debug",
	})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.Debugf("workout logged: %s", "Run")

	content, err := os.ReadFile(logPath + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(content), "workout logged: Run")
}

func TestSentryHook_Fire(t *testing.T) {
	hook := NewSentryHook([]logrus.Level{logrus.ErrorLevel})
	assert.Equal(t, []logrus.Level{logrus.ErrorLevel}, hook.Levels())

	var captured []*logrus.Entry
	hook.capture = func(entry *logrus.Entry) {
		captured = append(captured, entry)
	}

	logger := logrus.New()
	logger.SetOutput(&discard{})
	logger.AddHook(hook)

	logger.Info("not captured")
	logger.WithError(errors.New("save failed")).Error("persist state")

	require.Len(t, captured, 1)
	assert.Equal(t, "persist state", captured[0].Message)
}

type discard struct{}

func (d *discard) Write(p []byte) (int, error) { return len(p), nil }
