package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph/internal/graph"
	"github.com/notegraph/notegraph/internal/history"
	"github.com/notegraph/notegraph/internal/notes"
	"github.com/notegraph/notegraph/internal/orchestrator"
	"github.com/notegraph/notegraph/internal/pathcode"
	"github.com/notegraph/notegraph/internal/router"
	"github.com/notegraph/notegraph/internal/webhook"
)

// ===== Test doubles =====

type fakeEngine struct {
	mu         sync.Mutex
	state      *orchestrator.State
	tree       *notes.CategoryNode
	graph      *graph.Graph
	views      map[string]*orchestrator.NoteView
	err        error
	refreshErr error
	refreshes  int
}

func (f *fakeEngine) State() *orchestrator.State { return f.state }

func (f *fakeEngine) CurrentTree(ctx context.Context) (*notes.CategoryNode, error) {
	return f.tree, f.err
}

func (f *fakeEngine) Graph(ctx context.Context) (*graph.Graph, error) {
	return f.graph, f.err
}

func (f *fakeEngine) View(ctx context.Context, path string) (*orchestrator.NoteView, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.views[path]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", orchestrator.ErrNotFound, path)
}

func (f *fakeEngine) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshErr
}

type fakeRouter struct {
	paths [][]string
}

func (f *fakeRouter) Route(ctx context.Context, paths []string) (router.Decision, error) {
	f.paths = append(f.paths, paths)
	return router.DecisionPatch, nil
}

type fakeHistory struct {
	runs  []history.Run
	err   error
	limit int
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]history.Run, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func newEngine() *fakeEngine {
	root := &notes.CategoryNode{Name: "Study", Path: "/repo/study", IsDirectory: true, Children: []*notes.CategoryNode{}, Links: []string{}}
	return &fakeEngine{
		state: &orchestrator.State{SyncedAt: time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), Head: "abc123", Root: root},
		tree:  root,
		graph: &graph.Graph{Nodes: []graph.Node{}, Links: []graph.Link{}},
		views: map[string]*orchestrator.NoteView{},
	}
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestServer(engine Engine, secret string, r webhook.Router) *Server {
	var hooks *webhook.Handler
	if r != nil {
		hooks = webhook.NewHandler(r, "main", testLogger())
	}
	return NewServer(&Config{Port: 0, WebhookSecret: secret, Version: "test", Logger: testLogger()}, engine, hooks)
}

func do(t *testing.T, h http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ===== REST =====

func TestTree(t *testing.T) {
	engine := newEngine()
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/study/tree", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var tree notes.CategoryNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	assert.Equal(t, "Study", tree.Name)
	assert.True(t, tree.IsDirectory)
}

func TestTree_Unavailable(t *testing.T) {
	engine := newEngine()
	engine.err = fmt.Errorf("%w: clone failed", orchestrator.ErrUnavailable)
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/study/tree", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"unavailable"}`, rec.Body.String())
}

func TestGraph(t *testing.T) {
	engine := newEngine()
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/study/graph", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	engine.graph = &graph.Graph{
		Nodes: []graph.Node{{ID: "node-0", Name: "a", EncodedPath: "x"}, {ID: "node-1", Name: "b", EncodedPath: "y"}},
		Links: []graph.Link{{Source: "node-0", Target: "node-1", Value: 1}},
	}
	rec = do(t, h, http.MethodGet, "/api/study/graph", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var g graph.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Links, 1)
}

func TestView(t *testing.T) {
	engine := newEngine()
	path := "/repo/study/go/1. Channels.md"
	engine.views[path] = &orchestrator.NoteView{
		Path:         path,
		EncodedPath:  pathcode.Encode(path),
		Title:        "Channels",
		HTML:         "<h1>Channels</h1>",
		LastModified: time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC),
		CreatedAt:    time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
	}
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/study/view/"+pathcode.Encode(path), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Channels", resp.Title)
	assert.Equal(t, "<h1>Channels</h1>", resp.HTML)
	assert.Equal(t, "2025.01.09", resp.LastModified)
	assert.Equal(t, "2024.12.01", resp.CreatedAt)
	assert.Equal(t, path, resp.Path)

	rec = do(t, h, http.MethodGet, "/api/study/view/"+pathcode.Encode("/repo/study/missing.md"), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/study/view/@@@", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestView_OutsideContent(t *testing.T) {
	engine := newEngine()
	engine.err = fmt.Errorf("%w: /etc/passwd", orchestrator.ErrOutsideContent)
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/study/view/"+pathcode.Encode("/etc/passwd"), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefresh(t *testing.T) {
	engine := newEngine()
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/refresh", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.refreshes)

	engine.refreshErr = errors.New("pull failed")
	rec = do(t, h, http.MethodPost, "/api/refresh", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "pull failed")

	rec = do(t, h, http.MethodGet, "/api/refresh", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestServer(newEngine(), "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, "abc123", status.Head)
	require.NotNil(t, status.LastSync)
	assert.Equal(t, 2025, status.LastSync.Year())
}

func TestHealth_NeverSynced(t *testing.T) {
	engine := newEngine()
	engine.state = nil
	h := newTestServer(engine, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastSync":null`)
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(newEngine(), "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestMetrics(t *testing.T) {
	h := newTestServer(newEngine(), "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHistory(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	hist := &fakeHistory{runs: []history.Run{
		{RunID: "r2", Kind: history.KindPatch, Status: history.StatusSuccess, At: at, Updated: 1},
		{RunID: "r1", Kind: history.KindRefresh, Status: history.StatusFailure, At: at.Add(-time.Hour), Error: "fetch failed"},
	}}
	s := newTestServer(newEngine(), "", nil)
	s.config.History = hist
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/sync/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, hist.limit)

	var runs []history.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)
	assert.Equal(t, "fetch failed", runs[1].Error)

	rec = do(t, h, http.MethodGet, "/api/sync/history?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, hist.limit)

	rec = do(t, h, http.MethodGet, "/api/sync/history?limit=100000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxHistory, hist.limit)

	rec = do(t, h, http.MethodGet, "/api/sync/history?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	hist.err = errors.New("database is locked")
	rec = do(t, h, http.MethodGet, "/api/sync/history", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistory_Disabled(t *testing.T) {
	h := newTestServer(newEngine(), "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/sync/history", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"history disabled"}`, rec.Body.String())
}

func TestHistory_EmptyIsArray(t *testing.T) {
	s := newTestServer(newEngine(), "", nil)
	s.config.History = &fakeHistory{}

	rec := do(t, s.Handler(), http.MethodGet, "/api/sync/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// ===== Webhook =====

func TestWebhook(t *testing.T) {
	const secret = "s3cret"
	push := `{"ref":"refs/heads/main","commits":[{"added":["study/a.md"],"modified":["study/b.md"],"removed":[]}]}`
	other := `{"ref":"refs/heads/dev","commits":[{"added":["study/a.md"]}]}`

	tests := []struct {
		name     string
		secret   string
		event    string
		body     string
		sign     bool
		wantCode int
		wantBody string
		routed   bool
	}{
		{"no secret configured", "", "push", push, true, http.StatusInternalServerError, "Webhook secret not configured", false},
		{"bad signature", secret, "push", push, false, http.StatusUnauthorized, "Invalid signature", false},
		{"ping", secret, "ping", `{"zen":"hi"}`, true, http.StatusOK, webhook.ReasonEventIgnored, false},
		{"other branch", secret, "push", other, true, http.StatusOK, webhook.ReasonBranchIgnored, false},
		{"malformed", secret, "push", `{`, true, http.StatusBadRequest, "Malformed payload", false},
		{"tracked branch", secret, "push", push, true, http.StatusOK, "Successfully processed (patch)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRouter{}
			h := newTestServer(newEngine(), tt.secret, r).Handler()

			headers := map[string]string{webhook.EventHeader: tt.event}
			if tt.sign {
				headers[webhook.SignatureHeader] = webhook.Sign(secret, []byte(tt.body))
			} else {
				headers[webhook.SignatureHeader] = webhook.Sign("wrong", []byte(tt.body))
			}

			rec := do(t, h, http.MethodPost, "/api/webhook/github", tt.body, headers)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			if tt.routed {
				require.Len(t, r.paths, 1)
				assert.Equal(t, []string{"study/a.md", "study/b.md"}, r.paths[0])
			} else {
				assert.Empty(t, r.paths)
			}
		})
	}
}

// ===== WebSocket =====

func startServer(t *testing.T, engine Engine) *Server {
	t.Helper()
	s := newTestServer(engine, "", nil)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dial(t *testing.T, ctx context.Context, s *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_Welcome(t *testing.T) {
	s := startServer(t, newEngine())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, s)

	msg := readMessage(t, ctx, conn)
	assert.Equal(t, MessageTypeStatus, msg.Type)

	var status StatusData
	require.NoError(t, json.Unmarshal(msg.Data, &status))
	assert.Equal(t, "abc123", status.Head)
	assert.Equal(t, 1, s.ClientCount())
}

func TestWebSocket_BroadcastsEngineEvents(t *testing.T) {
	s := startServer(t, newEngine())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := []*websocket.Conn{dial(t, ctx, s), dial(t, ctx, s)}
	for _, conn := range conns {
		readMessage(t, ctx, conn)
	}

	var listener orchestrator.Listener = s
	listener.OnSyncComplete(orchestrator.SyncEvent{RunID: "run-1", Notes: 12})
	listener.OnSyncFailed(orchestrator.FailureEvent{RunID: "run-2", Error: "offline"})
	listener.OnPatchApplied(orchestrator.PatchEvent{RunID: "run-3", Updated: []string{"/repo/study/a.md"}})

	for _, conn := range conns {
		msg := readMessage(t, ctx, conn)
		assert.Equal(t, MessageTypeSyncComplete, msg.Type)
		var ev orchestrator.SyncEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, 12, ev.Notes)

		assert.Equal(t, MessageTypeSyncFailed, readMessage(t, ctx, conn).Type)
		assert.Equal(t, MessageTypePatchApplied, readMessage(t, ctx, conn).Type)
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	s := newTestServer(newEngine(), "", nil)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	readMessage(t, ctx, conn)

	require.NoError(t, s.Stop())
	assert.Zero(t, s.ClientCount())

	_, _, err = conn.Read(ctx)
	assert.Error(t, err)
}
