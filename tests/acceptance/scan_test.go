package acceptance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_TextReport(t *testing.T) {
	dir := t.TempDir()
	feeds := filepath.Join(dir, "feeds")
	require.NoError(t, os.MkdirAll(feeds, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(feeds, "1_a.json"), []byte(`[{"id": 1}, {"id": "2"}]`), 0o644))

	output, err := devenv(t, dir, nil, "scan", feeds).Output()
	require.NoError(t, err)

	assert.Contains(t, string(output), "--- JSON Structure Analysis Results ---")
	assert.Contains(t, string(output), "## Key: 'id'")
	assert.Contains(t, string(output), "     - Number    :          1 (50.00%)")
}

func TestScan_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(file, []byte("[]"), 0o644))

	_, err := devenv(t, dir, nil, "scan", file).Output()
	assert.Error(t, err)
}

func TestScan_NoFiles(t *testing.T) {
	dir := t.TempDir()

	output, err := devenv(t, dir, nil, "scan", dir).Output()
	require.NoError(t, err)
	assert.Equal(t, "No JSON files found.\n", string(output))
}
