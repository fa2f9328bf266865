package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// FirstCommitTime returns the committer time of the oldest commit that
// touched path. path may be absolute or relative to the working copy.
//
// Lookup failures are logged and fall back to the file's modification time,
// then to time.Now().
func (g *Git) FirstCommitTime(ctx context.Context, path string) time.Time {
	rel, err := g.relative(path)
	if err == nil {
		if t, ok := g.oldestCommit(ctx, rel); ok {
			return t
		}
	} else {
		g.logger.Printf("WARNING: %s is outside the working copy: %v", path, err)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.opts.LocalPath, path)
	}
	if info, err := os.Stat(abs); err == nil {
		return info.ModTime()
	}
	return time.Now()
}

func (g *Git) oldestCommit(ctx context.Context, rel string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := gogit.PlainOpen(g.opts.LocalPath)
	if err != nil {
		g.logger.Printf("WARNING: Failed to open %s for history lookup: %v", g.opts.LocalPath, err)
		return time.Time{}, false
	}

	iter, err := repo.Log(&gogit.LogOptions{FileName: &rel})
	if err != nil {
		g.logger.Printf("WARNING: Failed to read history of %s: %v", rel, err)
		return time.Time{}, false
	}
	defer iter.Close()

	var oldest time.Time
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if oldest.IsZero() || c.Committer.When.Before(oldest) {
			oldest = c.Committer.When
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		g.logger.Printf("WARNING: Failed to walk history of %s: %v", rel, err)
		return time.Time{}, false
	}

	return oldest, !oldest.IsZero()
}

// relative converts path to a slash-separated path relative to the
// working copy, as go-git expects.
func (g *Git) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(g.opts.LocalPath, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes working copy")
	}
	return filepath.ToSlash(rel), nil
}
