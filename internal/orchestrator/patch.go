package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/notegraph/notegraph/internal/cache"
	"github.com/notegraph/notegraph/internal/notes"
)

// PatchResult reports what PatchFiles did with each path.
type PatchResult struct {
	Updated []string // re-read and replaced or inserted
	Removed []string // deleted from the tree
	Ignored []string // not a visible note inside the content folder
	// Structural lists notes whose parent directory is not in the tree.
	// They were not applied; a full refresh is needed.
	Structural []string
}

// NeedsRefresh reports whether some paths could not be patched.
func (r PatchResult) NeedsRefresh() bool {
	return len(r.Structural) > 0
}

// PatchFiles updates the notes at the given absolute paths without a full
// rebuild. The working copy is pulled first so the files reflect upstream.
//
// Every path has its html-by-path entry evicted. Notes that exist are
// re-read and spliced into a copy of the tree; notes that no longer exist
// are removed. Untouched nodes keep their identity and order. The new tree
// is published with the previous SyncedAt and stored in the tree cache, and
// only the graph cache is invalidated.
//
// If no tree has been built yet every path is reported as Structural.
func (o *Orchestrator) PatchFiles(ctx context.Context, paths []string) (PatchResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "Orchestrator.PatchFiles")
	defer span.End()
	span.SetAttributes(attribute.Int("paths", len(paths)))

	var result PatchResult
	st := o.state.Load()
	if st == nil {
		result.Structural = append(result.Structural, paths...)
		return result, nil
	}

	if _, err := o.repo.Ensure(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("patch: %w", err)
	}

	root := st.Root
	for _, path := range paths {
		path = filepath.Clean(path)
		if !st.contains(path) || !notes.IsMarkdown(path) || notes.HasHiddenElement(st.relative(path)) {
			result.Ignored = append(result.Ignored, path)
			continue
		}

		o.invalidateHTML(path)

		leaf, err := o.leafIfExists(path)
		if err != nil {
			// Unreadable notes are omitted, as in a full build.
			o.config.Logger.Printf("WARNING: Failed to read note %s: %v", path, err)
		}

		if leaf == nil {
			var ok bool
			if root, ok = notes.RemoveLeaf(root, path); ok {
				result.Removed = append(result.Removed, path)
			}
			continue
		}

		patched, ok := notes.ReplaceLeaf(root, leaf)
		if !ok {
			result.Structural = append(result.Structural, path)
			continue
		}
		root = patched
		result.Updated = append(result.Updated, path)
	}

	if root != st.Root {
		next := st.withRoot(root)
		o.state.Store(next)
		o.cache.Tree.Put(cache.SnapshotKey, root)
	}
	o.cache.Graph.EvictAll()

	patchFiles.WithLabelValues("updated").Add(float64(len(result.Updated)))
	patchFiles.WithLabelValues("removed").Add(float64(len(result.Removed)))
	patchFiles.WithLabelValues("ignored").Add(float64(len(result.Ignored)))
	patchFiles.WithLabelValues("structural").Add(float64(len(result.Structural)))

	runID := uuid.NewString()
	o.config.Logger.Printf("Patch %s: %d updated, %d removed, %d ignored, %d structural",
		runID, len(result.Updated), len(result.Removed), len(result.Ignored), len(result.Structural))

	if len(result.Updated)+len(result.Removed) > 0 {
		event := PatchEvent{RunID: runID, At: o.config.Now(), Updated: result.Updated, Removed: result.Removed}
		o.each(func(l Listener) { l.OnPatchApplied(event) })
	}
	return result, nil
}

// leafIfExists returns the re-derived note, or nil if the file is gone. A
// note that exists but cannot be stat'ed or read yields nil and an error.
func (o *Orchestrator) leafIfExists(path string) (*notes.CategoryNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &notes.IOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, nil
	}
	return o.builder.Leaf(path)
}
