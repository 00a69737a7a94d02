package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// DataDir is where tasq keeps its config and databases.
func DataDir() string {
	return filepath.Join(UserHomeDir(), ".tasq")
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) string {
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return path
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(path), perm)
}
