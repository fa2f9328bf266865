package notes

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MarkdownExt is the extension of note files.
const MarkdownExt = ".md"

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// CategoryNode is a directory or note in the category tree.
// Nodes reachable from a published root must be treated as read-only.
type CategoryNode struct {
	// ===== Identity =====
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"`
	IsDirectory bool   `json:"directory" yaml:"directory"`

	// ===== Structure =====
	Children []*CategoryNode `json:"children" yaml:"children,omitempty"` // empty for files

	// ===== Note metadata =====
	Links        []string   `json:"links" yaml:"links,omitempty"`                       // empty for directories
	LastModified *time.Time `json:"lastModified,omitempty" yaml:"lastModified,omitempty"` // nil for directories
}

// newDirectory returns a directory node with an empty child list.
func newDirectory(name, path string) *CategoryNode {
	return &CategoryNode{
		Name:        name,
		Path:        path,
		IsDirectory: true,
		Children:    []*CategoryNode{},
		Links:       []string{},
	}
}

// newNote returns a file node.
func newNote(path string, modTime time.Time, links []string) *CategoryNode {
	if links == nil {
		links = []string{}
	}
	mt := modTime
	return &CategoryNode{
		Name:         DisplayName(filepath.Base(path), false),
		Path:         path,
		Children:     []*CategoryNode{},
		Links:        links,
		LastModified: &mt,
	}
}

// DisplayName strips a leading ordinal prefix ("1. ", "02.") from a raw
// filesystem name and, for files, the .md extension.
func DisplayName(raw string, isDir bool) string {
	name := ordinalPrefix.ReplaceAllString(raw, "")
	if !isDir {
		name = strings.TrimSuffix(name, MarkdownExt)
	}
	return name
}

// IsMarkdown reports whether name has the note extension.
func IsMarkdown(name string) bool {
	return strings.HasSuffix(name, MarkdownExt)
}

// IsHidden reports whether a single path element is hidden.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// HasHiddenElement reports whether any element of rel (a path relative to
// the content root) is hidden. Hidden entries are never part of a tree.
func HasHiddenElement(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != ".." && IsHidden(part) {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// stops the walk.
func (n *CategoryNode) Walk(fn func(*CategoryNode) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Notes returns every file leaf under n in pre-order.
func (n *CategoryNode) Notes() []*CategoryNode {
	var out []*CategoryNode
	n.Walk(func(c *CategoryNode) bool {
		if !c.IsDirectory {
			out = append(out, c)
		}
		return true
	})
	return out
}

// MarkdownFiles returns the paths of every note under n.
func (n *CategoryNode) MarkdownFiles() []string {
	leaves := n.Notes()
	paths := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		paths = append(paths, leaf.Path)
	}
	return paths
}

// Find returns the node with the given path, or nil.
func (n *CategoryNode) Find(path string) *CategoryNode {
	var found *CategoryNode
	n.Walk(func(c *CategoryNode) bool {
		if c.Path == path {
			found = c
			return false
		}
		return true
	})
	return found
}

// Count returns the number of directories (including n itself) and notes.
func (n *CategoryNode) Count() (dirs, files int) {
	n.Walk(func(c *CategoryNode) bool {
		if c.IsDirectory {
			dirs++
		} else {
			files++
		}
		return true
	})
	return dirs, files
}

// entryLess orders directories before files, then raw names
// case-insensitively, falling back to a case-sensitive comparison so the
// order is total.
func entryLess(aDir bool, aName string, bDir bool, bName string) bool {
	if aDir != bDir {
		return aDir
	}
	al, bl := strings.ToLower(aName), strings.ToLower(bName)
	if al != bl {
		return al < bl
	}
	return aName < bName
}

func nodeLess(a, b *CategoryNode) bool {
	return entryLess(a.IsDirectory, filepath.Base(a.Path), b.IsDirectory, filepath.Base(b.Path))
}
