// Package filex holds the small filesystem helpers the client needs for its
// data directory.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// EnsureDataDir creates dir (relative paths are taken from the working
// directory) and returns its absolute path.
func EnsureDataDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// RemoveFiles deletes every path. Missing files are not an error and a
// failure on one path does not stop the rest.
func RemoveFiles(paths ...string) error {
	var errs error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	return errs
}
