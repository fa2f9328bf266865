// Package webhook turns GitHub push notifications into routed change sets.
//
// The HTTP layer reads the body and headers, checks the signature with
// VerifySignature, extracts the ref and changed paths with ParsePush, and
// hands the result to Handler.HandleEvent. HandleEvent rejects anything that
// is not a signed push to the tracked branch before the router runs.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/notegraph/notegraph/internal/router"
)

const (
	// SignatureHeader carries the HMAC-SHA256 of the request body.
	SignatureHeader = "X-Hub-Signature-256"
	// EventHeader carries the GitHub event type.
	EventHeader = "X-GitHub-Event"
	// DeliveryHeader carries GitHub's unique id for the delivery.
	DeliveryHeader = "X-GitHub-Delivery"

	signaturePrefix = "sha256="
)

// VerifySignature reports whether header is "sha256=" followed by the hex
// HMAC-SHA256 of payload keyed with secret. An empty secret never verifies.
func VerifySignature(secret string, payload []byte, header string) bool {
	if secret == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	provided := strings.TrimPrefix(header, signaturePrefix)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(provided)), []byte(expected)) == 1
}

// Sign returns the signature header value for payload. It is the inverse of
// VerifySignature and is used to sign test deliveries.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// PushEvent is the part of a push payload the router needs.
type PushEvent struct {
	Ref   string
	Paths []string
}

type pushPayload struct {
	Ref     string `json:"ref"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

// ParsePush decodes a push payload. Paths is the union of every commit's
// added, modified and removed lists, deduplicated in order of first
// appearance.
func ParsePush(payload []byte) (PushEvent, error) {
	var p pushPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return PushEvent{}, fmt.Errorf("parse push payload: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(list []string) {
		for _, path := range list {
			if path == "" || seen[path] {
				continue
			}
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, c := range p.Commits {
		add(c.Added)
		add(c.Modified)
		add(c.Removed)
	}
	return PushEvent{Ref: p.Ref, Paths: paths}, nil
}

// Status is the result class of HandleEvent.
type Status string

const (
	StatusIgnored   Status = "ignored"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Ignore reasons.
const (
	ReasonInvalidSignature = "invalid signature"
	ReasonEventIgnored     = "event ignored"
	ReasonBranchIgnored    = "branch ignored"
)

// Outcome is the result of HandleEvent.
type Outcome struct {
	Status   Status
	Reason   string          // set when Status is StatusIgnored
	Decision router.Decision // set when the router ran
	Err      error           // set when Status is StatusFailed
}

// Router is implemented by *router.Router.
type Router interface {
	Route(ctx context.Context, changedPaths []string) (router.Decision, error)
}

// Handler applies verified push events to a Router.
type Handler struct {
	router Router
	branch string
	logger *log.Logger
}

// NewHandler creates a handler that accepts pushes to branch.
func NewHandler(r Router, branch string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{router: r, branch: branch, logger: logger}
}

// BranchRef returns the full ref the handler accepts.
func (h *Handler) BranchRef() string {
	return "refs/heads/" + h.branch
}

// HandleEvent routes paths if the delivery is a signed push to the tracked
// branch, and reports why it did not otherwise.
func (h *Handler) HandleEvent(ctx context.Context, eventType, ref string, paths []string, signatureValid bool) Outcome {
	if !signatureValid {
		h.logger.Printf("WARNING: Rejected webhook with invalid signature")
		return Outcome{Status: StatusIgnored, Reason: ReasonInvalidSignature}
	}
	if eventType != "push" {
		h.logger.Printf("Ignoring %q event", eventType)
		return Outcome{Status: StatusIgnored, Reason: ReasonEventIgnored}
	}
	if ref != h.BranchRef() {
		h.logger.Printf("Ignoring push to %q (tracking %q)", ref, h.BranchRef())
		return Outcome{Status: StatusIgnored, Reason: ReasonBranchIgnored}
	}

	h.logger.Printf("Push to %s with %d changed paths", ref, len(paths))
	decision, err := h.router.Route(ctx, paths)
	if err != nil {
		h.logger.Printf("ERROR: Failed to apply push (%s): %v", decision, err)
		return Outcome{Status: StatusFailed, Decision: decision, Err: err}
	}
	h.logger.Printf("Applied push: %s", decision)
	return Outcome{Status: StatusProcessed, Decision: decision}
}
