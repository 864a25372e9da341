package logging

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := InitLogger("test", dir, "warn")
	require.NoError(t, err)

	logger.Debug("debug line")
	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "test_"))

	contents, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"msg":"debug line"`)
}

func TestInitLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := InitLogger("test", t.TempDir(), "loud")
	assert.ErrorContains(t, err, "invalid log level")
}
