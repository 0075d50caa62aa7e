package entity

import (
	"fmt"
	"path/filepath"
	"strings"
)

// KeyStrategy selects how a PDF is keyed in the processed set.
type KeyStrategy string

const (
	// KeyByFilename keys on district/round/filename. Two files with the same name in
	// different subfolders of one round collide; the second is treated as done.
	KeyByFilename KeyStrategy = "filename"
	// KeyByRelPath keys on district/round/<path relative to the round folder>.
	KeyByRelPath KeyStrategy = "relpath"
)

// ParseKeyStrategy accepts "filename" (or "") and "relpath".
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyByFilename:
		return KeyByFilename, nil
	case KeyByRelPath:
		return KeyByRelPath, nil
	default:
		return "", fmt.Errorf("unknown key strategy %q", s)
	}
}

// ProcessedPDFID builds the processed-set key for a PDF found under roundDir.
func ProcessedPDFID(strategy KeyStrategy, district, round, roundDir, pdfPath string) string {
	name := filepath.Base(pdfPath)
	if strategy == KeyByRelPath {
		if rel, err := filepath.Rel(roundDir, pdfPath); err == nil && !strings.HasPrefix(rel, "..") {
			name = filepath.ToSlash(rel)
		}
	}
	return district + "/" + round + "/" + name
}
