// Package pathutil converts the file names reported by queries between the
// form stored in the database and the form shown to clients.
//
// Databases built from a file list produced with absolute paths store
// absolute names. Clients working inside the project read them more easily
// relative to the project root.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/xref/internal/types"
)

// ToRelative converts an absolute path to one relative to rootDir.
// Relative paths and paths outside rootDir are returned unchanged.
//
// Examples:
//   - ToRelative("/src/proj/lib/io.c", "/src/proj") → "lib/io.c"
//   - ToRelative("/usr/include/stdio.h", "/src/proj") → "/usr/include/stdio.h"
//   - ToRelative("lib/io.c", "/src/proj") → "lib/io.c"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" || !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	relPath, err := filepath.Rel(filepath.Clean(rootDir), absPath)
	if err != nil {
		return absPath
	}
	// outside the root the absolute form is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// ToRelativeReferences returns a copy of refs with File relative to rootDir.
// The input slice is not modified.
func ToRelativeReferences(refs []types.Reference, rootDir string) []types.Reference {
	if len(refs) == 0 || rootDir == "" {
		return refs
	}
	converted := make([]types.Reference, len(refs))
	copy(converted, refs)
	for i := range converted {
		converted[i].File = ToRelative(converted[i].File, rootDir)
	}
	return converted
}
