package orchestrator

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/notegraph/notegraph/internal/notes"
)

// State is an immutable snapshot of the synced repository.
type State struct {
	LocalPath   string
	ContentRoot string
	SyncedAt    time.Time
	Head        string
	Root        *notes.CategoryNode

	// files resolves wiki link targets to note paths.
	files map[string]string
}

func newState(localPath, contentRoot string, syncedAt time.Time, head string, root *notes.CategoryNode) *State {
	return &State{
		LocalPath:   localPath,
		ContentRoot: contentRoot,
		SyncedAt:    syncedAt,
		Head:        head,
		Root:        root,
		files:       indexFiles(root),
	}
}

// withRoot returns a copy of s with a patched tree. SyncedAt is kept: a
// patch does not restart the staleness window.
func (s *State) withRoot(root *notes.CategoryNode) *State {
	return newState(s.LocalPath, s.ContentRoot, s.SyncedAt, s.Head, root)
}

// contains reports whether path is inside the content root.
func (s *State) contains(path string) bool {
	rel, err := filepath.Rel(s.ContentRoot, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// relative returns path relative to the content root.
func (s *State) relative(path string) string {
	rel, err := filepath.Rel(s.ContentRoot, path)
	if err != nil {
		return path
	}
	return rel
}

// indexFiles maps raw note file names, then display names, to paths. Raw
// names win so "[[1. Setup]]" and "[[Setup]]" both resolve.
func indexFiles(root *notes.CategoryNode) map[string]string {
	files := make(map[string]string)
	leaves := root.Notes()
	for _, leaf := range leaves {
		name := filepath.Base(leaf.Path)
		if _, exists := files[name]; !exists {
			files[name] = leaf.Path
		}
	}
	for _, leaf := range leaves {
		name := leaf.Name + notes.MarkdownExt
		if _, exists := files[name]; !exists {
			files[name] = leaf.Path
		}
	}
	return files
}
