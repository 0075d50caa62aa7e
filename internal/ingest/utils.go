package ingest

import (
	"path/filepath"

	"github.com/joseph-ayodele/procurement-extractor/constants"
)

// IsPDF checks the extension case-insensitively.
func IsPDF(path string) bool {
	return constants.IsPDFExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden or a system artifact
// (.DS_Store, __MACOSX, ...).
func IsHidden(path string) bool {
	return constants.IsSkippedName(filepath.Base(path))
}
