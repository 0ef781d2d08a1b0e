package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchMatchesEvents(t *testing.T) {
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]WebhookConfig{
		{URL: srv.URL, Format: "generic", Events: []string{"denied"}},
	})

	d.Dispatch(Event{Decision: "denied", ActorID: "guest-1", Intent: "system.reboot"})
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("expected 1 call, got %d", called.Load())
	}
}

func TestDispatchSkipsNonMatching(t *testing.T) {
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]WebhookConfig{
		{URL: srv.URL, Format: "generic", Events: []string{"denied"}},
	})

	d.Dispatch(Event{Decision: "allowed", ActorID: "admin-1", Intent: "status.report"})
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 0 {
		t.Errorf("expected 0 calls for non-matching event, got %d", called.Load())
	}
}

func TestDispatchMatchesOverrideType(t *testing.T) {
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]WebhookConfig{
		{URL: srv.URL, Format: "generic", Events: []string{"override"}},
	})

	d.Dispatch(Event{Decision: "allowed", Type: "override", ActorID: "owner-1", Intent: "system.lockdown"})
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("expected 1 call for override type match, got %d", called.Load())
	}
}

func TestNilDispatcherForEmptyConfig(t *testing.T) {
	if d := NewDispatcher(nil); d != nil {
		t.Error("expected nil dispatcher for empty config")
	}
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Send(WebhookConfig{URL: srv.URL, Format: "generic"}, Event{Decision: "denied"})
	if err != nil {
		t.Errorf("expected success after retries, got: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := Send(WebhookConfig{URL: srv.URL, Format: "generic"}, Event{Decision: "denied"})
	if err == nil {
		t.Error("expected error for HTTP 400")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt (no retry on 4xx), got %d", attempts.Load())
	}
}

func TestSlackFormatFields(t *testing.T) {
	body, err := FormatPayload("slack", Event{
		Decision: "denied",
		ActorID:  "guest-1",
		Intent:   "system.reboot",
		Tier:     1,
		TierName: "admin-override",
		Reason:   "invalid credentials for tier",
	})
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("slack payload not valid JSON: %v", err)
	}
	if _, ok := payload["blocks"]; !ok {
		t.Error("slack payload missing blocks")
	}
}

func TestCustomHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := WebhookConfig{
		URL:     srv.URL,
		Format:  "generic",
		Headers: map[string]string{"Authorization": "Bearer token-1"},
	}
	if err := Send(cfg, Event{Decision: "allowed"}); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer token-1" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}
