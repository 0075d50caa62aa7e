package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// DirStats summarizes a recursive PDF walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// FindPDFs walks root recursively and returns every .pdf file (any case),
// skipping hidden and system entries. Unreadable subtrees are counted in
// Failed and skipped. Paths are returned sorted.
func FindPDFs(root string) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root is required")
	}

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil // continue walking
		}
		stats.Scanned++
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPDF(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	slices.Sort(paths)
	return paths, stats, nil
}
