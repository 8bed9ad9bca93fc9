package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linkup/client/internal/models"

	"golang.org/x/time/rate"
)

func TestClientAttachesAuthAndIdempotencyKey(t *testing.T) {
	t.Parallel()

	var gotAuth, gotIdem, gotGetIdem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			gotAuth = r.Header.Get("Authorization")
			gotIdem = r.Header.Get("Idempotency-Key")
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		case http.MethodGet:
			gotGetIdem = r.Header.Get("Idempotency-Key")
			_ = json.NewEncoder(w).Encode(models.ChatPage{})
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, NewTokenSource("tok-1", nil), server.Client(), nil)

	if err := client.Vote(context.Background(), "evt-1", "p1"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotIdem == "" {
		t.Fatal("mutating call missing Idempotency-Key")
	}

	if _, err := client.ListChat(context.Background(), "evt-1", "", 10); err != nil {
		t.Fatalf("list chat: %v", err)
	}
	if gotGetIdem != "" {
		t.Fatalf("GET carried Idempotency-Key %q", gotGetIdem)
	}
}

func TestClientLimiterDelaysBurstsWithoutDropping(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, NewTokenSource("tok-1", nil), server.Client(), nil)
	// Two tokens of burst at 50/s: calls three to five each wait 20 ms for a
	// refill instead of failing.
	client.limiter = rate.NewLimiter(rate.Limit(50), 2)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := client.Vote(context.Background(), "evt-1", "p1"); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if hits != 5 {
		t.Fatalf("server saw %d calls, want 5", hits)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("burst beyond the limit finished in %v, limiter did not wait", elapsed)
	}
}

func TestClientRefreshesAndRetriesOnceOn401(t *testing.T) {
	t.Parallel()

	var tokens []string
	var idemKeys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		idemKeys = append(idemKeys, r.Header.Get("Idempotency-Key"))
		if len(tokens) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	refreshes := 0
	ts := NewTokenSource("stale", func(ctx context.Context) (string, error) {
		refreshes++
		return "fresh", nil
	})
	client := NewClient(Config{BaseURL: server.URL}, ts, server.Client(), nil)

	if err := client.Vote(context.Background(), "evt-1", "p1"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(tokens))
	}
	if tokens[0] != "Bearer stale" || tokens[1] != "Bearer fresh" {
		t.Fatalf("token sequence = %v", tokens)
	}
	if refreshes != 1 {
		t.Fatalf("refreshes = %d, want 1", refreshes)
	}
	if idemKeys[0] == "" || idemKeys[0] != idemKeys[1] {
		t.Fatalf("idempotency key changed across retry: %v", idemKeys)
	}
}

func TestClientPropagatesPersistent401(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ts := NewTokenSource("stale", func(ctx context.Context) (string, error) { return "still-bad", nil })
	client := NewClient(Config{BaseURL: server.URL}, ts, server.Client(), nil)

	err := client.Vote(context.Background(), "evt-1", "p1")
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want exactly 2", attempts)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"voting is not open"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, NewTokenSource("tok", nil), server.Client(), nil)
	err := client.Vote(context.Background(), "evt-1", "p1")
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409 APIError, got %v", err)
	}
}

func TestGetEventRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"votingState":"SOMETIMES"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, NewTokenSource("tok", nil), server.Client(), nil)
	if _, err := client.GetEvent(context.Background(), "evt-1"); err == nil {
		t.Fatal("expected validation error for malformed event")
	}
}

func TestGetEventDecodesDetail(t *testing.T) {
	t.Parallel()

	endsAt := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	want := models.EventDetail{
		ID:           "evt-1",
		Title:        "Friday ramen night",
		VotingState:  models.VotingOpen,
		VotingEndsAt: &endsAt,
		IsMember:     true,
		Plans:        []models.EventPlan{{ID: "p1", EventID: "evt-1", Votes: 3}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/evt-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, NewTokenSource("tok", nil), server.Client(), nil)
	got, err := client.GetEvent(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.ID != want.ID || got.VotingState != want.VotingState || len(got.Plans) != 1 {
		t.Fatalf("decoded event = %+v", got)
	}
	if got.VotingEndsAt == nil || !got.VotingEndsAt.Equal(endsAt) {
		t.Fatalf("votingEndsAt = %v", got.VotingEndsAt)
	}
}
