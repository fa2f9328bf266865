package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/notegraph/notegraph/internal/cache"
	"github.com/notegraph/notegraph/internal/graph"
	"github.com/notegraph/notegraph/internal/notes"
	"github.com/notegraph/notegraph/internal/pathcode"
	"github.com/notegraph/notegraph/internal/render"
)

// CurrentTree returns the current category tree.
//
// A tree younger than Config.TreeTTL is served from cache. Otherwise one
// synchronous refresh runs, shared by all concurrent callers. If that
// refresh fails and an older tree exists, the older tree is returned; if no
// tree was ever built the error matches ErrUnavailable.
func (o *Orchestrator) CurrentTree(ctx context.Context) (*notes.CategoryNode, error) {
	if st := o.state.Load(); st != nil && o.fresh(st) {
		return o.cachedTree(st), nil
	}

	_, err, _ := o.flight.Do("refresh", func() (any, error) {
		return nil, o.refreshIfStale(context.WithoutCancel(ctx))
	})

	st := o.state.Load()
	if st == nil {
		if err == nil {
			err = errors.New("no tree after refresh")
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		o.config.Logger.Printf("WARNING: Serving tree from %s after failed refresh: %v",
			st.SyncedAt.Format(time.RFC3339), err)
		return st.Root, nil
	}

	return o.cachedTree(st), nil
}

// cachedTree returns st.Root, filling the tree cache. A cached root that is
// not st.Root was put by a reader that raced a writer and is replaced.
func (o *Orchestrator) cachedTree(st *State) *notes.CategoryNode {
	if root, ok := o.cache.Tree.Get(cache.SnapshotKey); ok && root == st.Root {
		return root
	}
	o.cache.Tree.Put(cache.SnapshotKey, st.Root)
	return st.Root
}

// Graph returns the link graph of the current tree, building and caching it
// on a miss.
func (o *Orchestrator) Graph(ctx context.Context) (*graph.Graph, error) {
	root, err := o.CurrentTree(ctx)
	if err != nil {
		return nil, err
	}

	if e, ok := o.cache.Graph.Get(cache.SnapshotKey); ok && e.Root == root {
		return e.Graph, nil
	}

	_, span := tracer.Start(ctx, "Orchestrator.Graph")
	defer span.End()

	g := graph.Build(root, pathcode.Encode)
	span.SetAttributes(attribute.Int("nodes", len(g.Nodes)), attribute.Int("links", len(g.Links)))
	o.config.Logger.Printf("Built graph: %s", g.Stats())

	// A writer may have replaced the tree while this graph was built.
	if st := o.state.Load(); st != nil && st.Root == root {
		o.cache.Graph.Put(cache.SnapshotKey, cache.GraphEntry{Root: root, Graph: g})
	}
	return g, nil
}

// RenderMarkdown renders text, reusing an earlier rendering of identical
// text.
func (o *Orchestrator) RenderMarkdown(text string) string {
	key := cache.HashContent(text)
	if html, ok := o.cache.HTMLByHash.Get(key); ok {
		return html
	}
	html := o.renderer.Render(text)
	o.cache.HTMLByHash.Put(key, html)
	return html
}

// RenderFile returns the rendered HTML of the note at path.
//
// path must be a markdown file inside the content folder; otherwise the
// error matches ErrOutsideContent. A missing note matches ErrNotFound.
func (o *Orchestrator) RenderFile(ctx context.Context, path string) (string, error) {
	if _, err := o.CurrentTree(ctx); err != nil {
		return "", err
	}
	st := o.state.Load()

	path, err := o.checkNotePath(st, path)
	if err != nil {
		return "", err
	}
	return o.renderPath(path)
}

// renderPath renders a note without touching the tree, for the precache
// sweep and RenderFile.
func (o *Orchestrator) renderPath(path string) (string, error) {
	if html, ok := o.cache.HTMLByPath.Get(path); ok {
		return html, nil
	}
	gen := o.htmlGeneration()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", &notes.IOError{Op: "read", Path: path, Err: err}
	}

	html := o.RenderMarkdown(string(content))
	o.putHTML(gen, path, html)
	return html, nil
}

func (o *Orchestrator) htmlGeneration() uint64 {
	o.htmlMu.Lock()
	defer o.htmlMu.Unlock()
	return o.htmlGen
}

// putHTML caches html for path unless html-by-path was invalidated after
// gen was read: the rendering may predate the eviction.
func (o *Orchestrator) putHTML(gen uint64, path, html string) {
	o.htmlMu.Lock()
	defer o.htmlMu.Unlock()
	if o.htmlGen == gen {
		o.cache.HTMLByPath.Put(path, html)
	}
}

// invalidateHTML evicts paths from html-by-path, or every entry when paths
// is empty, and fences out renders that started before the eviction.
func (o *Orchestrator) invalidateHTML(paths ...string) {
	o.htmlMu.Lock()
	defer o.htmlMu.Unlock()
	o.htmlGen++
	if len(paths) == 0 {
		o.cache.HTMLByPath.EvictAll()
		return
	}
	for _, path := range paths {
		o.cache.HTMLByPath.Evict(path)
	}
}

func (o *Orchestrator) checkNotePath(st *State, path string) (string, error) {
	path = filepath.Clean(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(st.ContentRoot, path)
	}
	if !st.contains(path) || !notes.IsMarkdown(path) || notes.HasHiddenElement(st.relative(path)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideContent, path)
	}
	return path, nil
}

// NoteView is a rendered note with its metadata.
type NoteView struct {
	Path         string    `json:"path"`
	EncodedPath  string    `json:"encodedPath"`
	Title        string    `json:"title"`
	HTML         string    `json:"html"`
	LastModified time.Time `json:"lastModified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// View renders the note at path together with its title, modification time
// and creation time (the first commit that added it).
func (o *Orchestrator) View(ctx context.Context, path string) (*NoteView, error) {
	html, err := o.RenderFile(ctx, path)
	if err != nil {
		return nil, err
	}
	path, _ = o.checkNotePath(o.state.Load(), path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return &NoteView{
		Path:         path,
		EncodedPath:  pathcode.Encode(path),
		Title:        notes.DisplayName(filepath.Base(path), false),
		HTML:         html,
		LastModified: info.ModTime(),
		CreatedAt:    o.repo.FirstCommitTime(ctx, path),
	}, nil
}

// NoteURL resolves a wiki link target to the viewer URL of the first note in
// tree order with that file name. Unknown names link to "<name>.md".
func (o *Orchestrator) NoteURL(name string) string {
	if st := o.state.Load(); st != nil {
		if path, ok := st.files[notes.BareName(name)+notes.MarkdownExt]; ok {
			return render.ViewURL(path)
		}
	}
	return render.ViewURL(name + notes.MarkdownExt)
}
