package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/notegraph/notegraph/internal/graph"
	"github.com/notegraph/notegraph/internal/history"
	"github.com/notegraph/notegraph/internal/notes"
	"github.com/notegraph/notegraph/internal/orchestrator"
	"github.com/notegraph/notegraph/internal/pathcode"
	"github.com/notegraph/notegraph/internal/webhook"
)

// Engine is the orchestrator surface the API serves. Implemented by
// *orchestrator.Orchestrator.
type Engine interface {
	State() *orchestrator.State
	CurrentTree(ctx context.Context) (*notes.CategoryNode, error)
	Graph(ctx context.Context) (*graph.Graph, error)
	View(ctx context.Context, path string) (*orchestrator.NoteView, error)
	Refresh(ctx context.Context) error
}

// HistoryReader lists recorded sync runs. Implemented by *history.Store.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// maxHistory caps the limit query parameter of GET /api/sync/history.
const maxHistory = 200

// DateLayout formats dates in API responses.
const DateLayout = "2006.01.02"

// maxPayload bounds webhook bodies; GitHub caps deliveries at 25 MB.
const maxPayload = 25 << 20

// ViewResponse is the body of GET /api/study/view/{encoded}.
type ViewResponse struct {
	Path         string `json:"path"`
	EncodedPath  string `json:"encodedPath"`
	Title        string `json:"title"`
	HTML         string `json:"html"`
	LastModified string `json:"lastModified"`
	CreatedAt    string `json:"createdAt"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.engine.CurrentTree(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Graph(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if g.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	path, err := pathcode.Decode(r.PathValue("encoded"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path encoding")
		return
	}

	view, err := s.engine.View(r.Context(), path)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ViewResponse{
		Path:         view.Path,
		EncodedPath:  view.EncodedPath,
		Title:        view.Title,
		HTML:         view.HTML,
		LastModified: view.LastModified.Format(DateLayout),
		CreatedAt:    view.CreatedAt.Format(DateLayout),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Refresh(r.Context()); err != nil {
		s.logger.Printf("ERROR: Manual refresh failed: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.config.History == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistory)
	}

	runs, err := s.config.History.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Printf("ERROR: Failed to read sync history: %v", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.config.WebhookSecret == "" {
		s.logger.Printf("WARNING: Webhook received but no secret is configured")
		writeText(w, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}
	if s.hooks == nil {
		writeText(w, http.StatusServiceUnavailable, "Webhook handling disabled")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		writeText(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	signed := webhook.VerifySignature(s.config.WebhookSecret, payload, r.Header.Get(webhook.SignatureHeader))
	if !signed {
		s.logger.Printf("WARNING: Webhook signature verification failed (delivery %s)", r.Header.Get(webhook.DeliveryHeader))
		writeText(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event := r.Header.Get(webhook.EventHeader)
	var push webhook.PushEvent
	if event == "push" {
		push, err = webhook.ParsePush(payload)
		if err != nil {
			writeText(w, http.StatusBadRequest, "Malformed payload")
			return
		}
	}

	out := s.hooks.HandleEvent(r.Context(), event, push.Ref, push.Paths, signed)
	switch out.Status {
	case webhook.StatusIgnored:
		writeText(w, http.StatusOK, out.Reason)
	case webhook.StatusFailed:
		writeText(w, http.StatusInternalServerError, "Processing failed: "+out.Err.Error())
	default:
		writeText(w, http.StatusOK, "Successfully processed ("+out.Decision.String()+")")
	}
}

// writeEngineError maps orchestrator errors to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable")
	case errors.Is(err, orchestrator.ErrNotFound), errors.Is(err, orchestrator.ErrOutsideContent):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Printf("ERROR: Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// securityHeaders sets the response headers every page carries.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://cdnjs.cloudflare.com https://cdn.jsdelivr.net; " +
	"style-src 'self' https://cdnjs.cloudflare.com https://cdn.jsdelivr.net; " +
	"font-src 'self' https://cdnjs.cloudflare.com data:; " +
	"img-src 'self' data:; " +
	"connect-src 'self'; " +
	"frame-ancestors 'none';"
