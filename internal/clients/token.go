package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrNotConfigured indicates missing backend credentials.
var ErrNotConfigured = errors.New("clients: backend credentials not configured")

const tokenRefreshMargin = 30 * time.Second

// TokenSource fetches and caches OAuth2 client-credentials bearer tokens
// for the billing backend. The token lifetime is read from the JWT exp
// claim when present, with the expires_in response field as fallback.
type TokenSource struct {
	oauthURL string
	credsB64 string
	client   HTTPDoer
	logger   *zap.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenSource builds a token source. credsB64 is the pre-encoded
// "client_id:client_secret" Basic auth value.
func NewTokenSource(oauthURL, credsB64 string, client HTTPDoer, logger *zap.Logger) *TokenSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{
		oauthURL: oauthURL,
		credsB64: credsB64,
		client:   client,
		logger:   logger,
	}
}

// Token returns a valid bearer token, fetching a fresh one when the cached
// token is absent or close to expiry.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(t.credsB64) == "" {
		return "", ErrNotConfigured
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiry.Add(-tokenRefreshMargin)) {
		return t.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Basic "+t.credsB64)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("clients: fetch bearer token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("clients: fetch bearer token: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("clients: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("clients: token response has no access_token")
	}

	t.token = payload.AccessToken
	t.expiry = tokenExpiry(payload.AccessToken, payload.ExpiresIn)
	t.logger.Debug("bearer token refreshed", zap.Time("expiry", t.expiry))
	return t.token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expiry = time.Time{}
	t.mu.Unlock()
}

// tokenExpiry prefers the exp claim inside the JWT. The signature is not
// checked here; the backend verifies it, we only need the lifetime.
func tokenExpiry(token string, expiresIn int64) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Now().Add(5 * time.Minute)
}
