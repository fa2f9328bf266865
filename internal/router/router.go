// Package router decides how a set of changed repository paths is applied:
// a full refresh of the tree, or a narrow per-note patch.
package router

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/notegraph/notegraph/internal/notes"
	"github.com/notegraph/notegraph/internal/orchestrator"
)

// Decision is the way a change set was applied.
type Decision string

const (
	// DecisionFull means the whole tree was rebuilt.
	DecisionFull Decision = "full"
	// DecisionPatch means only the changed notes were re-derived.
	DecisionPatch Decision = "patch"
	// DecisionIgnored means no changed path could affect the tree.
	DecisionIgnored Decision = "ignored"
)

func (d Decision) String() string {
	return string(d)
}

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notegraph_router_decisions_total",
	Help: "Change sets routed by decision (full, patch, ignored)",
}, []string{"decision"})

// Target is the orchestrator surface the router drives.
type Target interface {
	State() *orchestrator.State
	Refresh(ctx context.Context) error
	PatchFiles(ctx context.Context, paths []string) (orchestrator.PatchResult, error)
}

// Router routes changed paths to a Target.
type Router struct {
	target      Target
	contentPath string
	logger      *log.Logger
}

// New creates a router. contentPath is the note folder relative to the
// repository root, using forward slashes; empty means the whole repository.
func New(target Target, contentPath string, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Router{
		target:      target,
		contentPath: strings.Trim(filepath.ToSlash(contentPath), "/"),
		logger:      logger,
	}
}

// Route applies a change set given as repository-relative paths.
//
// An empty list, or any path that is not a markdown file, triggers a full
// refresh: the change may have moved directories or touched files the tree
// does not track. Otherwise markdown paths outside the content folder are
// dropped and the rest are patched. A patch that hits a note whose parent
// directory is unknown escalates to a full refresh.
func (r *Router) Route(ctx context.Context, changedPaths []string) (Decision, error) {
	d, err := r.route(ctx, changedPaths)
	decisions.WithLabelValues(d.String()).Inc()
	return d, err
}

func (r *Router) route(ctx context.Context, changedPaths []string) (Decision, error) {
	if len(changedPaths) == 0 {
		r.logger.Printf("No changed paths reported, refreshing")
		return DecisionFull, r.target.Refresh(ctx)
	}

	for _, p := range changedPaths {
		if !notes.IsMarkdown(p) {
			r.logger.Printf("Non-markdown change %q, refreshing", p)
			return DecisionFull, r.target.Refresh(ctx)
		}
	}

	st := r.target.State()
	if st == nil {
		r.logger.Printf("No tree built yet, refreshing")
		return DecisionFull, r.target.Refresh(ctx)
	}

	var paths []string
	for _, p := range changedPaths {
		rel := path.Clean(strings.ReplaceAll(p, `\`, "/"))
		if !r.inContent(rel) {
			continue
		}
		paths = append(paths, filepath.Join(st.LocalPath, filepath.FromSlash(rel)))
	}
	if len(paths) == 0 {
		r.logger.Printf("No changes under %q, ignoring %d paths", r.contentPath, len(changedPaths))
		return DecisionIgnored, nil
	}

	result, err := r.target.PatchFiles(ctx, paths)
	if err != nil {
		return DecisionPatch, fmt.Errorf("route: %w", err)
	}
	if result.NeedsRefresh() {
		r.logger.Printf("Structural change at %v, refreshing", result.Structural)
		return DecisionFull, r.target.Refresh(ctx)
	}
	if len(result.Updated)+len(result.Removed) == 0 {
		return DecisionIgnored, nil
	}
	return DecisionPatch, nil
}

// inContent reports whether a cleaned, slash-separated repository path lies
// inside the content folder.
func (r *Router) inContent(rel string) bool {
	if rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return false
	}
	if r.contentPath == "" {
		return true
	}
	return strings.HasPrefix(rel, r.contentPath+"/")
}
