package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath = errors.New("path cannot be empty")
	ErrNotDir    = errors.New("not a directory")
)

// ExpandPath turns a user supplied path into a clean absolute path. A leading "~" or "~/" is
// replaced by the home directory. The path does not need to exist.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(absPath), nil
}

// ResolveDir expands path and follows every symlink in it, so the result can be walked
// directly. It fails when the target is missing or not a directory.
func ResolveDir(path string) (string, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", err
	}

	realDir, err := filepath.EvalSymlinks(expanded)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(realDir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", path, ErrNotDir)
	}
	return realDir, nil
}

// IsRegularFile reports whether path, after following symlinks, is a regular file
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
