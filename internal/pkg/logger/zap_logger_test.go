package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.log")
	l := NewIsolatedLogger(path)

	l.Info("HUB", "client registered", map[string]interface{}{"user_id": "u1"})
	l.Debug("HUB", "below file level", nil)
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"client registered"`)
	assert.Contains(t, string(data), `"module":"HUB"`)
	assert.NotContains(t, string(data), "below file level")
}

func TestNopLogger(t *testing.T) {
	var l ILogger = NewNopLogger()
	l.Error("X", "ignored", map[string]interface{}{"error": "boom"})
	assert.NoError(t, l.Sync())
}
