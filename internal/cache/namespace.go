package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegraph_cache_requests_total",
		Help: "Cache lookups by namespace and result (hit, miss)",
	}, []string{"namespace", "result"})

	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegraph_cache_evictions_total",
		Help: "Cache evictions by namespace and reason (capacity, explicit)",
	}, []string{"namespace", "reason"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notegraph_cache_entries",
		Help: "Current number of entries per cache namespace",
	}, []string{"namespace"})
)

// Namespace is a bounded LRU map with hit/miss accounting.
type Namespace[K comparable, V any] struct {
	name     Name
	capacity int
	lru      *lru.Cache[K, V]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewNamespace creates a namespace holding at most capacity entries.
func NewNamespace[K comparable, V any](name Name, capacity int) (*Namespace[K, V], error) {
	l, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating %s cache: %w", name, err)
	}
	return &Namespace[K, V]{name: name, capacity: capacity, lru: l}, nil
}

// Name returns the namespace name.
func (n *Namespace[K, V]) Name() Name {
	return n.name
}

// Get returns the value for key and marks it recently used.
func (n *Namespace[K, V]) Get(key K) (V, bool) {
	v, ok := n.lru.Get(key)
	if ok {
		n.hits.Add(1)
		cacheRequests.WithLabelValues(string(n.name), "hit").Inc()
	} else {
		n.misses.Add(1)
		cacheRequests.WithLabelValues(string(n.name), "miss").Inc()
	}
	return v, ok
}

// Peek returns the value for key without touching recency or counters.
func (n *Namespace[K, V]) Peek(key K) (V, bool) {
	return n.lru.Peek(key)
}

// Put stores value under key, evicting the least recently used entry if the
// namespace is full.
func (n *Namespace[K, V]) Put(key K, value V) {
	if n.lru.Add(key, value) {
		n.evictions.Add(1)
		cacheEvictions.WithLabelValues(string(n.name), "capacity").Inc()
	}
	cacheEntries.WithLabelValues(string(n.name)).Set(float64(n.lru.Len()))
}

// Evict removes key. It reports whether the key was present.
func (n *Namespace[K, V]) Evict(key K) bool {
	present := n.lru.Remove(key)
	if present {
		cacheEvictions.WithLabelValues(string(n.name), "explicit").Inc()
	}
	cacheEntries.WithLabelValues(string(n.name)).Set(float64(n.lru.Len()))
	return present
}

// EvictAll removes every entry.
func (n *Namespace[K, V]) EvictAll() {
	if count := n.lru.Len(); count > 0 {
		cacheEvictions.WithLabelValues(string(n.name), "explicit").Add(float64(count))
	}
	n.lru.Purge()
	cacheEntries.WithLabelValues(string(n.name)).Set(0)
}

// Len returns the number of entries.
func (n *Namespace[K, V]) Len() int {
	return n.lru.Len()
}

// Stats returns the namespace's counters.
func (n *Namespace[K, V]) Stats() Stats {
	return Stats{
		Name:      n.name,
		Len:       n.lru.Len(),
		Capacity:  n.capacity,
		Hits:      n.hits.Load(),
		Misses:    n.misses.Load(),
		Evictions: n.evictions.Load(),
	}
}
