package server

import (
	"encoding/json"
	"time"

	"github.com/notegraph/notegraph/internal/orchestrator"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// MessageTypeStatus is sent once to every new client
	MessageTypeStatus MessageType = "status"

	// MessageTypeSyncComplete indicates a full refresh finished
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeSyncFailed indicates a full refresh failed and the previous
	// tree is still served
	MessageTypeSyncFailed MessageType = "sync_failed"

	// MessageTypePatchApplied indicates individual notes were updated
	MessageTypePatchApplied MessageType = "patch_applied"
)

// Message is a WebSocket broadcast message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StatusData describes the current state of the engine.
type StatusData struct {
	Status   string     `json:"status"`
	Clients  int        `json:"clients"`
	Version  string     `json:"version,omitempty"`
	Head     string     `json:"head,omitempty"`
	LastSync *time.Time `json:"lastSync"`
}

func newMessage(typ MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Timestamp: time.Now(), Data: raw}, nil
}

func (s *Server) status() StatusData {
	status := StatusData{
		Status:  "ok",
		Clients: s.ClientCount(),
		Version: s.config.Version,
	}
	if st := s.engine.State(); st != nil {
		synced := st.SyncedAt
		status.LastSync = &synced
		status.Head = st.Head
	}
	return status
}

// OnSyncComplete implements orchestrator.Listener.
func (s *Server) OnSyncComplete(e orchestrator.SyncEvent) {
	s.publish(MessageTypeSyncComplete, e)
}

// OnSyncFailed implements orchestrator.Listener.
func (s *Server) OnSyncFailed(e orchestrator.FailureEvent) {
	s.publish(MessageTypeSyncFailed, e)
}

// OnPatchApplied implements orchestrator.Listener.
func (s *Server) OnPatchApplied(e orchestrator.PatchEvent) {
	s.publish(MessageTypePatchApplied, e)
}

func (s *Server) publish(typ MessageType, data any) {
	msg, err := newMessage(typ, data)
	if err != nil {
		s.logger.Printf("WARNING: Failed to marshal %s data: %v", typ, err)
		return
	}
	s.Broadcast(msg)
}
