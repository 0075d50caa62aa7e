package constants

import "strings"

// ExtPDF is the only document extension the batch reads.
const ExtPDF = "pdf"

// SkippedDirs are directory names never treated as districts or walked into.
var SkippedDirs = map[string]struct{}{
	".DS_Store":   {},
	"__pycache__": {},
	"__MACOSX":    {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFExt reports whether ext (with or without the dot) names a PDF.
func IsPDFExt(ext string) bool {
	return NormalizeExt(ext) == ExtPDF
}

// IsSkippedName reports hidden entries and well-known system directories.
func IsSkippedName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := SkippedDirs[name]
	return ok
}
