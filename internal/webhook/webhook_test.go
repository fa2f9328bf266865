package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph/internal/router"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)
	valid := Sign("secret", payload)

	tests := []struct {
		name   string
		secret string
		header string
		want   bool
	}{
		{"valid", "secret", valid, true},
		{"uppercase hex", "secret", "sha256=" + upper(valid[len("sha256="):]), true},
		{"wrong secret", "other", valid, false},
		{"missing prefix", "secret", valid[len("sha256="):], false},
		{"sha1 header", "secret", "sha1=" + valid[len("sha256="):], false},
		{"empty header", "secret", "", false},
		{"empty secret", "", valid, false},
		{"truncated", "secret", valid[:len(valid)-2], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.secret, payload, tt.header))
		})
	}

	assert.False(t, VerifySignature("secret", []byte(`{"ref":"refs/heads/dev"}`), valid), "tampered body")
}

func TestSign_KnownVector(t *testing.T) {
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestParsePush(t *testing.T) {
	payload := []byte(`{
		"ref": "refs/heads/main",
		"commits": [
			{"added": ["study/a.md"], "modified": ["study/b.md"], "removed": []},
			{"added": [], "modified": ["study/a.md", "README.md"], "removed": ["study/c.md"]}
		]
	}`)

	ev, err := ParsePush(payload)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", ev.Ref)
	assert.Equal(t, []string{"study/a.md", "study/b.md", "README.md", "study/c.md"}, ev.Paths)
}

func TestParsePush_NoCommits(t *testing.T) {
	ev, err := ParsePush([]byte(`{"ref":"refs/heads/main"}`))
	require.NoError(t, err)
	assert.Empty(t, ev.Paths)
}

func TestParsePush_Invalid(t *testing.T) {
	_, err := ParsePush([]byte(`not json`))
	assert.Error(t, err)
}

type fakeRouter struct {
	calls    [][]string
	decision router.Decision
	err      error
}

func (f *fakeRouter) Route(ctx context.Context, paths []string) (router.Decision, error) {
	f.calls = append(f.calls, paths)
	return f.decision, f.err
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     string
		ref       string
		signed    bool
		wantState Status
		reason    string
		routed    bool
	}{
		{"invalid signature", "push", "refs/heads/main", false, StatusIgnored, ReasonInvalidSignature, false},
		{"ping event", "ping", "refs/heads/main", true, StatusIgnored, ReasonEventIgnored, false},
		{"other branch", "push", "refs/heads/dev", true, StatusIgnored, ReasonBranchIgnored, false},
		{"tag push", "push", "refs/tags/main", true, StatusIgnored, ReasonBranchIgnored, false},
		{"tracked branch", "push", "refs/heads/main", true, StatusProcessed, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRouter{decision: router.DecisionPatch}
			h := NewHandler(r, "main", nil)

			out := h.HandleEvent(context.Background(), tt.event, tt.ref, []string{"study/a.md"}, tt.signed)
			assert.Equal(t, tt.wantState, out.Status)
			assert.Equal(t, tt.reason, out.Reason)
			if tt.routed {
				require.Len(t, r.calls, 1)
				assert.Equal(t, router.DecisionPatch, out.Decision)
			} else {
				assert.Empty(t, r.calls)
			}
		})
	}
}

func TestHandleEvent_RouterFailure(t *testing.T) {
	r := &fakeRouter{decision: router.DecisionFull, err: errors.New("clone failed")}
	h := NewHandler(r, "main", nil)

	out := h.HandleEvent(context.Background(), "push", "refs/heads/main", nil, true)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, router.DecisionFull, out.Decision)
	assert.EqualError(t, out.Err, "clone failed")
}
