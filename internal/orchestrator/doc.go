// Package orchestrator ties repository sync, tree building, graph assembly
// and caching together behind a single synchronized entry point.
//
// # Overview
//
// The Orchestrator owns the only mutable reference to the current category
// tree. Writers (Refresh and PatchFiles) run under one exclusive lock;
// readers load an atomically published *State and never block on a writer.
//
//	┌──────────────┐ Ensure ┌──────────┐ Build ┌───────────┐
//	│   Refresh    ├───────►│ vcs/git  ├──────►│  notes    │
//	└──────┬───────┘        └──────────┘       └─────┬─────┘
//	       │ publish State, evict caches             │
//	       ▼                                         ▼
//	┌──────────────┐  precache (errgroup)   ┌───────────────┐
//	│ atomic State ├───────────────────────►│ cache (4 LRU) │
//	└──────────────┘                        └───────────────┘
//
// # Refresh
//
// Refresh pulls (or clones) the repository, rebuilds the tree from the
// content folder, publishes it, evicts the tree, graph and both HTML caches,
// and starts a background sweep that renders every note into the HTML
// caches. The sweep is not awaited; it runs until it finishes or Close is
// called. A failed Refresh leaves the previous state in place.
//
// # Reads
//
// CurrentTree serves the cached tree while it is younger than the staleness
// window (Config.TreeTTL) and otherwise performs one synchronous refresh;
// concurrent stale readers share that refresh. If no tree was ever built and
// the refresh fails, reads return ErrUnavailable.
//
// # Patching
//
// PatchFiles updates individual notes in place of a full rebuild: each
// changed note is re-read (or removed) and spliced into a copy of the tree
// that shares every untouched node with the previous one. Only the graph
// cache is invalidated.
//
// # Example
//
//	orch, err := orchestrator.New(repo, renderer, contentCache, &orchestrator.Config{
//	    ContentPath: "study",
//	    TreeTTL:     30 * time.Minute,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer orch.Close()
//
//	if err := orch.Refresh(ctx); err != nil {
//	    log.Printf("initial sync failed: %v", err)
//	}
//	tree, err := orch.CurrentTree(ctx)
package orchestrator
