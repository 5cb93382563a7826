package triage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	triageerrors "github.com/customeros/mailtriage/internal/errors"
)

var reportNamePattern = regexp.MustCompile(`^report_\d{8}_\d{6}_[a-z0-9]{8}\.md$`)

func TestFileReportWriter_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	writer := NewFileReportWriter(dir)

	path, err := writer.Save(context.Background(), "# Email Triage Report\n")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, reportNamePattern, filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Email Triage Report\n", string(content))
}

func TestFileReportWriter_UniqueNames(t *testing.T) {
	writer := NewFileReportWriter(t.TempDir())

	seen := make(map[string]struct{})
	for i := 0; i < 25; i++ {
		path, err := writer.Save(context.Background(), "report")
		require.NoError(t, err)
		_, dup := seen[path]
		require.False(t, dup, "report path reused: %s", path)
		seen[path] = struct{}{}
	}
}

func TestFileReportWriter_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewFileReportWriter(blocker).Save(context.Background(), "report")
	assert.ErrorIs(t, err, triageerrors.ErrReportWrite)
}

func TestWriteFileDurably(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")

	require.NoError(t, writeFileDurably(path, []byte("# Email Triage Report\n")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Email Triage Report\n", string(content))

	err = writeFileDurably(path, []byte("again"))
	require.Error(t, err)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Email Triage Report\n", string(content))
}

func TestSyncDir(t *testing.T) {
	require.NoError(t, syncDir(t.TempDir()))

	err := syncDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open directory")
}
