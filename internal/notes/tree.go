package notes

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
)

// DefaultRootName is the display name of the tree root.
const DefaultRootName = "Study"

// Builder walks a content directory into a CategoryNode tree.
type Builder struct {
	rootName string
	logger   *log.Logger
}

// BuildStats summarizes the most recent Build.
type BuildStats struct {
	Directories int
	Notes       int
	Skipped     int // notes omitted because they could not be read
}

// NewBuilder creates a tree builder. An empty rootName uses DefaultRootName.
func NewBuilder(rootName string, logger *log.Logger) *Builder {
	if rootName == "" {
		rootName = DefaultRootName
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[notes] ", log.LstdFlags)
	}
	return &Builder{rootName: rootName, logger: logger}
}

// Build walks root and returns the category tree.
//
// Returns an *IOError if root does not exist, is not a directory, or one of
// its subdirectories cannot be listed. Notes that cannot be read are logged
// and omitted.
func (b *Builder) Build(root string) (*CategoryNode, error) {
	tree, _, err := b.BuildWithStats(root)
	return tree, err
}

// BuildWithStats is Build that also reports what was walked.
func (b *Builder) BuildWithStats(root string) (*CategoryNode, BuildStats, error) {
	var stats BuildStats

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, stats, &IOError{Op: "build", Path: root, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, stats, &IOError{Op: "build", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, stats, &IOError{Op: "build", Path: abs, Err: fmt.Errorf("not a directory")}
	}

	node := newDirectory(b.rootName, abs)
	if err := b.walk(node, &stats); err != nil {
		return nil, stats, err
	}
	stats.Directories++

	if stats.Skipped > 0 {
		b.logger.Printf("WARNING: Built tree for %s with %d unreadable notes omitted", abs, stats.Skipped)
	}
	return node, stats, nil
}

// Leaf re-derives the note node for a single markdown file.
func (b *Builder) Leaf(path string) (*CategoryNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &IOError{Op: "stat", Path: path, Err: fmt.Errorf("is a directory")}
	}
	return b.readNote(path, info)
}

type dirEntry struct {
	name  string
	isDir bool
	info  fs.FileInfo
}

func (b *Builder) walk(dir *CategoryNode, stats *BuildStats) error {
	entries, err := b.list(dir.Path)
	if err != nil {
		return err
	}

	for _, e := range entries {
		path := filepath.Join(dir.Path, e.name)

		if e.isDir {
			child := newDirectory(DisplayName(e.name, true), path)
			if err := b.walk(child, stats); err != nil {
				return err
			}
			stats.Directories++
			dir.Children = append(dir.Children, child)
			continue
		}

		leaf, err := b.readNote(path, e.info)
		if err != nil {
			b.logger.Printf("WARNING: Failed to read note %s: %v", path, err)
			stats.Skipped++
			continue
		}
		stats.Notes++
		dir.Children = append(dir.Children, leaf)
	}

	return nil
}

// list returns the visible subdirectories and markdown files of dir in
// tree order.
func (b *Builder) list(dir string) ([]dirEntry, error) {
	raw, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Op: "list", Path: dir, Err: err}
	}

	entries := make([]dirEntry, 0, len(raw))
	for _, de := range raw {
		name := de.Name()
		if IsHidden(name) {
			continue
		}

		// Stat follows symlinks so linked folders and notes are included.
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			b.logger.Printf("WARNING: Failed to stat %s: %v", filepath.Join(dir, name), err)
			continue
		}

		if !info.IsDir() && !IsMarkdown(name) {
			continue
		}
		entries = append(entries, dirEntry{name: name, isDir: info.IsDir(), info: info})
	}

	slices.SortFunc(entries, func(a, b dirEntry) int {
		switch {
		case entryLess(a.isDir, a.name, b.isDir, b.name):
			return -1
		case entryLess(b.isDir, b.name, a.isDir, a.name):
			return 1
		default:
			return 0
		}
	})
	return entries, nil
}

func (b *Builder) readNote(path string, info fs.FileInfo) (*CategoryNode, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return newNote(path, info.ModTime(), ExtractLinks(string(content))), nil
}
