// Package blob writes generated artifacts into the game's asset tree.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS stores files under Root. Relative keys are resolved against Root;
// keys may not escape it.
type LocalFS struct {
	Root string
}

// Put writes r to relPath, creating parent directories as needed. Data goes
// to a temp file in the target directory first and is renamed into place, so
// an existing file is replaced only by a complete one. It returns the
// cleaned key and the number of bytes written.
func (l LocalFS) Put(relPath string, r io.Reader) (string, int64, error) {
	clean, abs, err := l.resolve(relPath)
	if err != nil {
		return "", 0, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return "", 0, err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		_ = tmp.Close()
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return "", 0, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		return "", 0, err
	}
	cleanup = false
	return clean, n, nil
}

func (l LocalFS) Open(relPath string) (*os.File, error) {
	_, abs, err := l.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

func (l LocalFS) Exists(relPath string) bool {
	_, abs, err := l.resolve(relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

func (l LocalFS) resolve(relPath string) (string, string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("invalid blob key %q", relPath)
	}
	root := l.Root
	if root == "" {
		root = "."
	}
	return clean, filepath.Join(root, clean), nil
}
