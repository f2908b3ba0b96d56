package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoMatch is returned when a source location holds no matching file.
var ErrNoMatch = errors.New("no matching file")

// Resolve turns a source location into a single file path. A regular file
// resolves to itself. A glob resolves to its newest match. A directory
// resolves to its newest file with extension ext, searched directly inside
// first and then recursively.
func Resolve(location, ext string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("%w: empty location", ErrNoMatch)
	}
	if hasMeta(location) {
		matches, err := filepath.Glob(location)
		if err != nil {
			return "", fmt.Errorf("glob %q: %w", location, err)
		}
		return Newest(regularFiles(matches))
	}

	info, err := os.Stat(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoMatch, location)
		}
		return "", fmt.Errorf("stat %s: %w", location, err)
	}
	if !info.IsDir() {
		return location, nil
	}

	pattern := "*" + ext
	direct, err := filepath.Glob(filepath.Join(location, pattern))
	if err != nil {
		return "", fmt.Errorf("glob %q: %w", location, err)
	}
	if files := regularFiles(direct); len(files) > 0 {
		return Newest(files)
	}

	var nested []string
	err = filepath.WalkDir(location, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			nested = append(nested, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", location, err)
	}
	if len(nested) == 0 {
		return "", fmt.Errorf("%w: no %s files under %s", ErrNoMatch, pattern, location)
	}
	return Newest(nested)
}

// Newest returns the most recently modified path. Ties go to the
// lexically greatest path so the choice is stable.
func Newest(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", ErrNoMatch
	}
	var (
		best     string
		bestTime int64
	)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		mod := info.ModTime().UnixNano()
		if best == "" || mod > bestTime || (mod == bestTime && path > best) {
			best, bestTime = path, mod
		}
	}
	return best, nil
}

// Signature summarizes a file's identity as size and modification time.
func Signature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano()), nil
}

// TempSibling returns a hidden temporary path next to path.
func TempSibling(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
}

// RemoveIfExists deletes path and reports whether anything was removed.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

func regularFiles(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			out = append(out, p)
		}
	}
	return out
}
