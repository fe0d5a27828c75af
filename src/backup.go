package src

import (
	"fmt"
	"os"
)

// BackupPath names the sidecar file for a given loop iteration.
func BackupPath(path string, iteration int) string {
	return fmt.Sprintf("%s.backup.%d", path, iteration)
}

// WriteBackup saves content beside the target before it gets overwritten.
// The file mode mirrors the target's when it exists.
func WriteBackup(path string, iteration int, content string) (string, error) {
	backup := BackupPath(path, iteration)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(backup, []byte(content), mode); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backup, err)
	}
	return backup, nil
}

// RestoreBackup copies a backup's content back over the target.
func RestoreBackup(backup, path string) error {
	data, err := os.ReadFile(backup)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", backup, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("restore %s from %s: %w", path, backup, err)
	}
	return nil
}
