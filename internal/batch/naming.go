package batch

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const batchInfix = "_batch_"

// Artifact is one batch file.
type Artifact struct {
	Path     string
	Index    int
	Rows     int
	Fallback bool
}

// ArtifactPath returns the batch file path for index.
func ArtifactPath(finalPath string, index int) string {
	dir, stem, ext := splitFinal(finalPath)
	return filepath.Join(dir, fmt.Sprintf("%s%s%03d%s", stem, batchInfix, index, ext))
}

// Discover lists existing batch artifacts for finalPath ordered by index.
// Row counts are not populated.
func Discover(finalPath string) ([]Artifact, error) {
	dir, stem, ext := splitFinal(finalPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	prefix := stem + batchInfix
	var out []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rest, ok := strings.CutPrefix(entry.Name(), prefix)
		if !ok {
			continue
		}
		digits, ok := strings.CutSuffix(rest, ext)
		if !ok || digits == "" {
			continue
		}
		index, err := strconv.Atoi(digits)
		if err != nil || index < 0 {
			continue
		}
		out = append(out, Artifact{Path: filepath.Join(dir, entry.Name()), Index: index})
	}
	slices.SortFunc(out, func(a, b Artifact) int { return cmp.Compare(a.Index, b.Index) })
	return out, nil
}

// RemoveAll deletes every batch artifact of finalPath and returns how many
// were removed.
func RemoveAll(finalPath string) (int, error) {
	artifacts, err := Discover(finalPath)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, a := range artifacts {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", a.Path, err)
		}
		removed++
	}
	return removed, nil
}

func splitFinal(finalPath string) (dir, stem, ext string) {
	dir = filepath.Dir(finalPath)
	base := filepath.Base(finalPath)
	ext = filepath.Ext(base)
	if ext == "" {
		ext = ".parquet"
	}
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return dir, stem, ext
}
