// Package srcfiles holds the source file list recorded in a database trailer
// and resolves the names through the view path.
package srcfiles

import (
	"os"
	"path/filepath"
)

// List is the ordered set of source files a database was built from.
// Posting file indexes point into it.
type List struct {
	root        string
	sourceDirs  []string
	includeDirs []string
	files       []string
}

// New creates a list. Relative directories and names are resolved against root.
func New(root string, sourceDirs, includeDirs, files []string) *List {
	return &List{
		root:        root,
		sourceDirs:  sourceDirs,
		includeDirs: includeDirs,
		files:       files,
	}
}

// AddSourceDirs appends directories to the view path.
func (l *List) AddSourceDirs(dirs ...string) {
	l.sourceDirs = append(l.sourceDirs, dirs...)
}

// Count returns the number of source files.
func (l *List) Count() int { return len(l.files) }

// Name returns the i-th file name, or "" when i is out of range.
func (l *List) Name(i int) string {
	if i < 0 || i >= len(l.files) {
		return ""
	}
	return l.files[i]
}

// Names returns the file names in database order.
func (l *List) Names() []string { return l.files }

// SourceDirs returns the view path.
func (l *List) SourceDirs() []string { return l.sourceDirs }

// IncludeDirs returns the include search directories.
func (l *List) IncludeDirs() []string { return l.includeDirs }

// Root returns the directory relative names are resolved against.
func (l *List) Root() string { return l.root }

// ResolvePath finds a readable path for name: absolute names as they are,
// relative names under the root and then under each view path directory.
func (l *List) ResolvePath(name string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, exists(name)
	}
	candidates := []string{filepath.Join(l.root, name)}
	for _, dir := range l.sourceDirs {
		if dir == "." || dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(l.root, dir)
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		if exists(c) {
			return c, true
		}
	}
	return candidates[0], false
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
