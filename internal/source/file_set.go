package source

import (
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet maps FileIDs carried by IR spans back to file paths.
// The zero FileID is reserved for spans without a file.
type FileSet struct {
	paths []string
	index map[string]FileID // path -> id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		paths: []string{""},
		index: make(map[string]FileID),
	}
}

// Add registers path and returns its FileID. Registering the same path twice
// returns the existing id.
func (fs *FileSet) Add(path string) FileID {
	norm := filepath.ToSlash(filepath.Clean(path))
	if id, ok := fs.index[norm]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(fs.paths))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(n)
	fs.paths = append(fs.paths, norm)
	fs.index[norm] = id
	return id
}

// Path returns the path registered for id, or "" if unknown.
func (fs *FileSet) Path(id FileID) string {
	if fs == nil || int(id) >= len(fs.paths) {
		return ""
	}
	return fs.paths[id]
}

// Len returns the number of registered files.
func (fs *FileSet) Len() int {
	return len(fs.paths) - 1
}

// Format renders sp as "path:start-end", falling back to the numeric form.
func (fs *FileSet) Format(sp Span) string {
	p := fs.Path(sp.File)
	if p == "" {
		return sp.String()
	}
	return fmt.Sprintf("%s:%d-%d", p, sp.Start, sp.End)
}
