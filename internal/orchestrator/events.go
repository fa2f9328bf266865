package orchestrator

import "time"

// Listener receives notifications about writes to the current state.
// Methods are called synchronously after the state has been published and
// must not block.
type Listener interface {
	OnSyncComplete(SyncEvent)
	OnSyncFailed(FailureEvent)
	OnPatchApplied(PatchEvent)
}

// SyncEvent describes a successful full refresh.
type SyncEvent struct {
	RunID       string        `json:"runId"`
	Head        string        `json:"head,omitempty"`
	SyncedAt    time.Time     `json:"syncedAt"`
	Directories int           `json:"directories"`
	Notes       int           `json:"notes"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
}

// FailureEvent describes a failed refresh.
type FailureEvent struct {
	RunID string    `json:"runId"`
	At    time.Time `json:"at"`
	Error string    `json:"error"`
}

// PatchEvent describes a per-note patch.
type PatchEvent struct {
	RunID   string    `json:"runId"`
	At      time.Time `json:"at"`
	Updated []string  `json:"updated"`
	Removed []string  `json:"removed"`
}

// AddListener registers l for future events.
func (o *Orchestrator) AddListener(l Listener) {
	o.listenersMu.Lock()
	defer o.listenersMu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Orchestrator) each(fn func(Listener)) {
	o.listenersMu.RLock()
	defer o.listenersMu.RUnlock()
	for _, l := range o.listeners {
		fn(l)
	}
}
