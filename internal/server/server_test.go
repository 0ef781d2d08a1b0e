package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/powerstream/commandgate/internal/auditlog"
	"github.com/powerstream/commandgate/internal/cmdqueue"
	"github.com/powerstream/commandgate/internal/gate"
	"github.com/powerstream/commandgate/internal/keyring"
	"github.com/powerstream/commandgate/internal/policy"
	"github.com/powerstream/commandgate/internal/signature"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	audit, err := auditlog.Open(filepath.Join(dir, "audit"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { audit.Close() })

	queue, err := cmdqueue.Open(filepath.Join(dir, "queue.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { queue.Close() })

	sigs, err := signature.NewStore(filepath.Join(dir, "signatures"))
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.DiscardHandler)
	roles, err := policy.NewAuthorizer(logger)
	if err != nil {
		t.Fatal(err)
	}

	g, err := gate.New(gate.Config{
		Keys:       keyring.New([]string{"admin-key-A"}, []string{"sovereign-key-A"}),
		Signatures: sigs,
		Audit:      audit,
		Queue:      queue,
		Roles:      roles,
		Logger:     logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(g, logger, "")
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitAllowed(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{
		"actor_id": "admin-1",
		"role":     "admin",
		"command":  "check system status",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Allowed bool   `json:"allowed"`
		Intent  string `json:"intent"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Allowed || resp.Intent != "status.report" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSubmitDeniedIs403(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{
		"actor_id": "guest",
		"role":     "guest",
		"command":  "reboot system",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	var resp struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Allowed {
		t.Error("denied response marked allowed")
	}
	if resp.Reason != "invalid credentials for tier" {
		t.Errorf("reason = %q", resp.Reason)
	}
}

func TestSubmitValidation(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	if w := doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{"role": "admin"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{
		"actor_id": "a", "command": "status", "tier": "galactic",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown tier: status = %d, want 400", w.Code)
	}
}

func TestQueueRoundTrip(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{
		"actor_id": "admin-1", "role": "admin", "command": "check system status",
	})

	w := doJSON(t, r, http.MethodGet, "/v1/queue", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &listResp)
	if listResp.Count != 1 {
		t.Errorf("count = %d, want 1", listResp.Count)
	}

	if w := doJSON(t, r, http.MethodPost, "/v1/queue/clear", map[string]any{
		"actor_id": "guest", "credential": "wrong",
	}); w.Code != http.StatusForbidden {
		t.Errorf("bad-credential clear: status = %d, want 403", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, "/v1/queue/clear", map[string]any{
		"actor_id": "admin-1", "credential": "admin-key-A",
	}); w.Code != http.StatusOK {
		t.Errorf("clear: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/v1/queue", nil)
	json.Unmarshal(w.Body.Bytes(), &listResp)
	if listResp.Count != 0 {
		t.Errorf("count after clear = %d, want 0", listResp.Count)
	}
}

func TestEnrollmentEndpoint(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	if w := doJSON(t, r, http.MethodPost, "/v1/signatures", map[string]any{
		"actor_id": "guest", "credential": "wrong", "owner_id": "owner-1", "sample": "voice",
	}); w.Code != http.StatusForbidden {
		t.Errorf("bad-credential enroll: status = %d, want 403", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, "/v1/signatures", map[string]any{
		"actor_id": "admin-1", "credential": "admin-key-A", "owner_id": "owner-1", "sample": "voice",
	}); w.Code != http.StatusOK {
		t.Errorf("enroll: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestOverrideResetEndpoint(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{
		"actor_id": "admin-1", "role": "admin", "command": "reboot system",
		"credential": "admin-key-A", "tier": "admin-override",
	})

	if w := doJSON(t, r, http.MethodPost, "/v1/override/reset", map[string]any{
		"actor_id": "guest", "credential": "wrong",
	}); w.Code != http.StatusForbidden {
		t.Errorf("bad-credential reset: status = %d, want 403", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, "/v1/override/reset", map[string]any{
		"actor_id": "admin-1", "credential": "admin-key-A",
	}); w.Code != http.StatusOK {
		t.Errorf("reset: status = %d, body = %s", w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/v1/status", nil)
	var resp struct {
		Tier string `json:"tier"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Tier != "normal" {
		t.Errorf("tier after reset = %q, want normal", resp.Tier)
	}
}

func TestAuditEndpoint(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	doJSON(t, r, http.MethodPost, "/v1/commands", map[string]any{
		"actor_id": "guest", "role": "guest", "command": "reboot system",
	})

	w := doJSON(t, r, http.MethodGet, "/v1/audit/override", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("override entries = %d, want 1", resp.Count)
	}

	if w := doJSON(t, r, http.MethodGet, "/v1/audit/bogus", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown category: status = %d, want 404", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodGet, "/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Tier   string `json:"tier"`
		Queued int    `json:"queued"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Tier != "normal" {
		t.Errorf("tier = %q, want normal", resp.Tier)
	}
}
