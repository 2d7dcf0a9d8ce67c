package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize bounds SafeReadFile. Tag lists for the largest model families
// are a few megabytes.
const MaxFileSize int64 = 64 << 20

// ErrFileTooLarge is returned by SafeReadFile for files over MaxFileSize
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// ExpandPath expands environment variables and a leading ~ and returns a
// clean absolute path. An empty path is returned unchanged.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// SafeReadFile reads a regular file after path expansion, refusing
// directories and anything larger than MaxFileSize.
func SafeReadFile(path string) ([]byte, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", expanded)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, expanded, info.Size())
	}

	return io.ReadAll(io.LimitReader(f, MaxFileSize+1))
}
