// Package workdir manages the scan working directory: one subdirectory per
// target plus the final archive at the root.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// dirPerm is the permission used for every directory created here.
const dirPerm = 0o750

// ErrUnsafeWorkDir is returned when Reset is asked to clear a directory
// that must never be emptied, such as "/" or the user's home directory.
var ErrUnsafeWorkDir = errors.New("refusing to reset unsafe work directory")

// ErrInvalidTargetDir is returned when a target identifier would escape the root.
var ErrInvalidTargetDir = errors.New("invalid target directory name")

// Reset prepares dir for a fresh run. An existing directory is emptied
// but kept; a missing one is created.
func Reset(dir string) error {
	abs, err := checkSafe(dir)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(abs, dirPerm)
		}
		return fmt.Errorf("failed to read work directory: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(abs, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Ensure creates dir if it does not exist, leaving existing content alone.
func Ensure(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return ErrUnsafeWorkDir
	}
	return os.MkdirAll(dir, dirPerm)
}

// EnsureTargetDir creates root/id and returns its absolute path.
func EnsureTargetDir(root, id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTargetDir, id)
	}

	dir, err := filepath.Abs(filepath.Join(root, id))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	return dir, nil
}

func checkSafe(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafeWorkDir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if abs == filepath.Dir(abs) {
		return "", fmt.Errorf("%w: %s is the filesystem root", ErrUnsafeWorkDir, abs)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if abs == filepath.Clean(home) {
			return "", fmt.Errorf("%w: %s is the home directory", ErrUnsafeWorkDir, abs)
		}
	}
	return abs, nil
}
