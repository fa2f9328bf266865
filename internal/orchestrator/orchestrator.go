package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/notegraph/notegraph/internal/cache"
	"github.com/notegraph/notegraph/internal/notes"
	"github.com/notegraph/notegraph/internal/render"
	"github.com/notegraph/notegraph/internal/vcs"
)

// Config holds configuration for the orchestrator.
type Config struct {
	// ContentPath is the note folder, relative to the working copy.
	// Empty means the working copy root.
	ContentPath string

	// RootName is the display name of the tree root.
	RootName string

	// TreeTTL is how long a built tree is served before a read triggers a
	// synchronous refresh.
	TreeTTL time.Duration

	// PrecacheWorkers bounds the number of notes rendered concurrently by
	// the precache sweep.
	PrecacheWorkers int

	// Logger for orchestrator activity
	Logger *log.Logger

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ContentPath:     "study",
		RootName:        notes.DefaultRootName,
		TreeTTL:         30 * time.Minute,
		PrecacheWorkers: 4,
		Logger:          log.New(os.Stderr, "[sync] ", log.LstdFlags),
		Now:             time.Now,
	}
}

// Orchestrator is the synchronized entry point to the content engine.
type Orchestrator struct {
	repo     vcs.RepositorySync
	renderer render.Renderer
	cache    *cache.Cache
	builder  *notes.Builder
	config   *Config

	state atomic.Pointer[State]

	// mu serializes Refresh and PatchFiles.
	mu     sync.Mutex
	flight singleflight.Group

	// htmlGen counts html-by-path invalidations; guarded by htmlMu.
	htmlMu  sync.Mutex
	htmlGen uint64

	listenersMu sync.RWMutex
	listeners   []Listener

	// ctx bounds background precache sweeps; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator. Zero fields of config take their defaults.
//
// If renderer is a *render.Markdown, the orchestrator installs itself as its
// wiki link resolver.
func New(repo vcs.RepositorySync, renderer render.Renderer, c *cache.Cache, config *Config) (*Orchestrator, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer cannot be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	config = withDefaults(config)

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		repo:     repo,
		renderer: renderer,
		cache:    c,
		builder:  notes.NewBuilder(config.RootName, config.Logger),
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
	}

	if md, ok := renderer.(*render.Markdown); ok {
		md.SetResolver(o)
	}
	return o, nil
}

func withDefaults(config *Config) *Config {
	defaults := DefaultConfig()
	if config == nil {
		return defaults
	}
	c := *config
	if c.RootName == "" {
		c.RootName = defaults.RootName
	}
	if c.TreeTTL <= 0 {
		c.TreeTTL = defaults.TreeTTL
	}
	if c.PrecacheWorkers <= 0 {
		c.PrecacheWorkers = defaults.PrecacheWorkers
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
	if c.Now == nil {
		c.Now = defaults.Now
	}
	return &c
}

// State returns the current snapshot, or nil if no tree was ever built.
func (o *Orchestrator) State() *State {
	return o.state.Load()
}

// Refresh synchronizes the repository and rebuilds the tree.
//
// Only one Refresh or PatchFiles runs at a time. Once started, the sync
// runs to completion even if ctx is cancelled. On failure the previous
// state is retained and the error (matching vcs.ErrSync or notes.ErrIO) is
// returned.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshLocked(ctx)
}

// refreshIfStale refreshes unless another writer produced a fresh state
// while this caller waited for the lock.
func (o *Orchestrator) refreshIfStale(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if st := o.state.Load(); st != nil && o.fresh(st) {
		return nil
	}
	return o.refreshLocked(ctx)
}

func (o *Orchestrator) refreshLocked(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "Orchestrator.Refresh")
	defer span.End()

	runID := uuid.NewString()
	start := time.Now()
	o.config.Logger.Printf("Refresh %s: synchronizing repository", runID)

	st, stats, err := o.sync(ctx)
	if err != nil {
		refreshTotal.WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.config.Logger.Printf("ERROR: Refresh %s failed: %v", runID, err)
		o.each(func(l Listener) {
			l.OnSyncFailed(FailureEvent{RunID: runID, At: o.config.Now(), Error: err.Error()})
		})
		return fmt.Errorf("refresh: %w", err)
	}

	o.state.Store(st)
	o.invalidateHTML()
	o.cache.EvictAll(cache.TreeSnapshot, cache.GraphSnapshot, cache.HTMLByHash)
	o.startPrecache(st)

	elapsed := time.Since(start)
	refreshTotal.WithLabelValues("success").Inc()
	refreshDuration.Observe(elapsed.Seconds())
	treeNotes.Set(float64(stats.Notes))
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("notes", stats.Notes),
		attribute.Int("directories", stats.Directories),
	)
	o.config.Logger.Printf("Refresh %s complete: %d directories, %d notes in %v",
		runID, stats.Directories, stats.Notes, elapsed.Round(time.Millisecond))

	event := SyncEvent{
		RunID:       runID,
		Head:        st.Head,
		SyncedAt:    st.SyncedAt,
		Directories: stats.Directories,
		Notes:       stats.Notes,
		Skipped:     stats.Skipped,
		Duration:    elapsed,
	}
	o.each(func(l Listener) { l.OnSyncComplete(event) })
	return nil
}

// sync runs Ensure and Build and returns the state to publish.
func (o *Orchestrator) sync(ctx context.Context) (*State, notes.BuildStats, error) {
	local, err := o.repo.Ensure(ctx)
	if err != nil {
		return nil, notes.BuildStats{}, err
	}

	contentRoot := filepath.Join(local, filepath.FromSlash(o.config.ContentPath))
	root, stats, err := o.builder.BuildWithStats(contentRoot)
	if err != nil {
		return nil, stats, err
	}

	head, err := o.repo.Head(ctx)
	if err != nil {
		o.config.Logger.Printf("WARNING: Failed to read head commit: %v", err)
	}

	return newState(local, root.Path, o.config.Now(), head, root), stats, nil
}

func (o *Orchestrator) fresh(st *State) bool {
	return o.config.Now().Sub(st.SyncedAt) < o.config.TreeTTL
}

// Wait blocks until in-flight precache sweeps finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels background work and waits for it to stop.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}
