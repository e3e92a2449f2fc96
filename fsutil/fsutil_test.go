//go:build !windows

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	usage, err := Usage(t.TempDir())
	require.NoError(t, err)

	assert.Positive(t, usage.Total)
	assert.GreaterOrEqual(t, usage.Free, int64(0))
	assert.LessOrEqual(t, usage.Free, usage.Total)
	assert.LessOrEqual(t, usage.Used, usage.Total)
}

func TestUsage_MissingPath(t *testing.T) {
	_, err := FreeSpace(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestLinkCount(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o644))

	fi, err := os.Lstat(file)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), LinkCount(fi))

	require.NoError(t, os.Link(file, filepath.Join(dir, "link")))

	fi, err = os.Lstat(file)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), LinkCount(fi))
}
