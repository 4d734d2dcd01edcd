package logging

import (
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefaults(t *testing.T) {
	prevSlog := slog.Default()
	prevOut := log.Writer()
	prevFlags := log.Flags()
	t.Cleanup(func() {
		slog.SetDefault(prevSlog)
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
}

func TestSetupDisabledByDefault(t *testing.T) {
	restoreDefaults(t)
	dir := filepath.Join(t.TempDir(), "logs")

	logger, closer := Setup(false, dir)
	require.NotNil(t, logger)
	require.NotNil(t, closer)
	assert.NoError(t, closer.Close())

	assert.Equal(t, io.Discard, log.Writer())
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
	assert.NoDirExists(t, dir, "disabled logging creates nothing")
}

func TestSetupWritesJSON(t *testing.T) {
	restoreDefaults(t)
	dir := filepath.Join(t.TempDir(), "logs")

	logger, closer := Setup(true, dir)
	logger.Debug("generation", "n", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "generation", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.EqualValues(t, 3, rec["n"])

	assert.NotEqual(t, os.Stdout, log.Writer())
	assert.NotEqual(t, os.Stderr, log.Writer())
}

func TestSetupRotation(t *testing.T) {
	restoreDefaults(t)
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	require.NoError(t, os.WriteFile(path, make([]byte, MaxSize+1), 0644))

	_, closer := Setup(true, dir)
	defer closer.Close()

	old, err := os.Stat(path + ".old")
	require.NoError(t, err, "oversized log is moved aside")
	assert.EqualValues(t, MaxSize+1, old.Size())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(MaxSize))
}

func TestSetupUnwritableDir(t *testing.T) {
	restoreDefaults(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	logger, closer := Setup(true, filepath.Join(file, "logs"))
	require.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}
