package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsFilePath reports whether an SQLite DSN names a file on disk rather
// than an in-memory database or a URI.
func IsFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

// EnsureParentDir creates the directory that will hold path, if missing,
// and returns it.
func EnsureParentDir(path string) (string, error) {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
