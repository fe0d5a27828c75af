package src

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBackupNamesBySideAndIteration(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(target, []byte("current"), 0o644))

	backup, err := WriteBackup(target, 3, "previous contents")
	require.NoError(t, err)

	assert.Equal(t, target+".backup.3", backup)
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "previous contents", string(data))
}

func TestWriteBackupPreservesMode(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(target, []byte("#!/bin/sh\n"), 0o755))

	backup, err := WriteBackup(target, 1, "#!/bin/sh\n")
	require.NoError(t, err)

	info, err := os.Stat(backup)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestRestoreBackup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(target, []byte("broken"), 0o644))

	backup, err := WriteBackup(target, 1, "good")
	require.NoError(t, err)
	require.NoError(t, RestoreBackup(backup, target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "good", string(data))
}

func TestRestoreBackupMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := RestoreBackup(filepath.Join(dir, "nope.backup.1"), filepath.Join(dir, "app.py"))
	assert.Error(t, err)
}
