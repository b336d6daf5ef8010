package batch

import (
	"fmt"
	"os"
	"path/filepath"
)

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// writeAtomic writes data to a temp file next to dest and renames it into
// place, so an interrupted write never leaves a file that a re-run would
// skip.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("unable to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".audiogen-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("unable to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("unable to write audio: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmpName)
		return fmt.Errorf("unable to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("unable to move audio into place: %w", err)
	}
	return nil
}
