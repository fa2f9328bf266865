package history

import (
	"context"
	"time"

	"github.com/notegraph/notegraph/internal/orchestrator"
)

// recordTimeout bounds a single insert so a locked database cannot stall
// the orchestrator's publish path.
const recordTimeout = 2 * time.Second

var _ orchestrator.Listener = (*Store)(nil)

// OnSyncComplete records a successful refresh.
func (s *Store) OnSyncComplete(ev orchestrator.SyncEvent) {
	s.record(Run{
		RunID:       ev.RunID,
		Kind:        KindRefresh,
		Status:      StatusSuccess,
		Head:        ev.Head,
		At:          ev.SyncedAt,
		Duration:    ev.Duration,
		Directories: ev.Directories,
		Notes:       ev.Notes,
	})
}

// OnSyncFailed records a failed refresh.
func (s *Store) OnSyncFailed(ev orchestrator.FailureEvent) {
	s.record(Run{
		RunID:  ev.RunID,
		Kind:   KindRefresh,
		Status: StatusFailure,
		At:     ev.At,
		Error:  ev.Error,
	})
}

// OnPatchApplied records a per-note patch.
func (s *Store) OnPatchApplied(ev orchestrator.PatchEvent) {
	s.record(Run{
		RunID:   ev.RunID,
		Kind:    KindPatch,
		Status:  StatusSuccess,
		At:      ev.At,
		Updated: len(ev.Updated),
		Removed: len(ev.Removed),
	})
}

func (s *Store) record(run Run) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.Record(ctx, run); err != nil {
		s.logger.Printf("WARNING: Failed to record %s run %s: %v", run.Kind, run.RunID, err)
	}
}
