package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("notegraph.orchestrator")

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegraph_refresh_total",
		Help: "Full refreshes by result (success, failure)",
	}, []string{"result"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notegraph_refresh_duration_seconds",
		Help:    "Duration of full refreshes",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	treeNotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notegraph_tree_notes",
		Help: "Number of notes in the current tree",
	})

	precacheFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegraph_precache_files_total",
		Help: "Notes processed by the precache sweep by result (success, failure)",
	}, []string{"result"})

	patchFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notegraph_patch_files_total",
		Help: "Notes handled by PatchFiles by action (updated, removed, ignored, structural)",
	}, []string{"action"})
)
