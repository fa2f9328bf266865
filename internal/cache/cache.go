// Package cache holds the four bounded in-memory caches of the content
// engine: rendered HTML by file path, rendered HTML by content hash, the
// current category tree and the current link graph.
//
// Each namespace is an independent LRU bounded by entry count. Entries carry
// no TTL; expiry is driven by explicit Evict/EvictAll calls from the sync
// orchestrator, which also owns the tree staleness check.
//
// Thread Safety:
//
//	Every namespace is safe for concurrent use. There is no atomicity across
//	namespaces.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/notegraph/notegraph/internal/graph"
	"github.com/notegraph/notegraph/internal/notes"
)

// Name identifies a cache namespace.
type Name string

const (
	HTMLByPath    Name = "html-by-path"
	HTMLByHash    Name = "html-by-hash"
	TreeSnapshot  Name = "tree"
	GraphSnapshot Name = "graph"
)

// AllNames lists every namespace.
var AllNames = []Name{HTMLByPath, HTMLByHash, TreeSnapshot, GraphSnapshot}

// SnapshotKey is the singleton key of the tree and graph namespaces.
const SnapshotKey = "current"

// DefaultCapacity bounds each namespace when no capacity is configured.
const DefaultCapacity = 1000

// Cache groups the four namespaces.
type Cache struct {
	HTMLByPath *Namespace[string, string]
	HTMLByHash *Namespace[string, string]
	Tree       *Namespace[string, *notes.CategoryNode]
	Graph      *Namespace[string, GraphEntry]
}

// GraphEntry is a cached graph together with the tree it was built from.
// A reader must ignore an entry whose Root is not the tree it is serving.
type GraphEntry struct {
	Root  *notes.CategoryNode
	Graph *graph.Graph
}

// New creates a Cache whose namespaces each hold at most capacity entries.
// A capacity <= 0 uses DefaultCapacity.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	byPath, err := NewNamespace[string, string](HTMLByPath, capacity)
	if err != nil {
		return nil, err
	}
	byHash, err := NewNamespace[string, string](HTMLByHash, capacity)
	if err != nil {
		return nil, err
	}
	tree, err := NewNamespace[string, *notes.CategoryNode](TreeSnapshot, capacity)
	if err != nil {
		return nil, err
	}
	g, err := NewNamespace[string, GraphEntry](GraphSnapshot, capacity)
	if err != nil {
		return nil, err
	}

	return &Cache{HTMLByPath: byPath, HTMLByHash: byHash, Tree: tree, Graph: g}, nil
}

// EvictAll empties the named namespaces.
func (c *Cache) EvictAll(names ...Name) {
	for _, name := range names {
		switch name {
		case HTMLByPath:
			c.HTMLByPath.EvictAll()
		case HTMLByHash:
			c.HTMLByHash.EvictAll()
		case TreeSnapshot:
			c.Tree.EvictAll()
		case GraphSnapshot:
			c.Graph.EvictAll()
		}
	}
}

// Stats returns a snapshot of every namespace's counters.
func (c *Cache) Stats() []Stats {
	return []Stats{
		c.HTMLByPath.Stats(),
		c.HTMLByHash.Stats(),
		c.Tree.Stats(),
		c.Graph.Stats(),
	}
}

// HashContent returns the html-by-hash key for markdown text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Stats describes one namespace.
type Stats struct {
	Name      Name
	Len       int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d/%d entries, %d hits, %d misses, %d evictions",
		s.Name, s.Len, s.Capacity, s.Hits, s.Misses, s.Evictions)
}
