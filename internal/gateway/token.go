package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshFunc supplies a fresh bearer token. The host application wires in
// whatever auth provider it uses; this package only caches the result.
type RefreshFunc func(ctx context.Context) (string, error)

// TokenSource caches a bearer token and refreshes it shortly before the
// expiry encoded in its JWT exp claim. Tokens without a readable exp claim
// are kept until Invalidate is called.
type TokenSource struct {
	refresh     RefreshFunc
	now         func() time.Time
	refreshSkew time.Duration

	mu           sync.Mutex
	cachedToken  string
	cachedExpiry time.Time
}

func NewTokenSource(initial string, refresh RefreshFunc) *TokenSource {
	ts := &TokenSource{
		refresh:     refresh,
		now:         time.Now,
		refreshSkew: 30 * time.Second,
	}
	initial = strings.TrimSpace(initial)
	if initial != "" {
		ts.cachedToken = initial
		ts.cachedExpiry = tokenExpiry(initial)
	}
	return ts
}

func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cachedToken != "" {
		if ts.cachedExpiry.IsZero() || ts.now().Before(ts.cachedExpiry.Add(-ts.refreshSkew)) {
			return ts.cachedToken, nil
		}
	}

	if ts.refresh == nil {
		if ts.cachedToken != "" {
			return ts.cachedToken, nil
		}
		return "", fmt.Errorf("no auth token available")
	}

	token, err := ts.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh auth token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("auth token refresh returned empty token")
	}
	ts.cachedToken = token
	ts.cachedExpiry = tokenExpiry(token)
	return ts.cachedToken, nil
}

// Invalidate drops the cached token so the next Token call refreshes. With no
// refresh func the cached token is kept since there is nothing better to hand
// out.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.refresh == nil {
		return
	}
	ts.cachedToken = ""
	ts.cachedExpiry = time.Time{}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// gateway validates tokens, the client only schedules refreshes.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
