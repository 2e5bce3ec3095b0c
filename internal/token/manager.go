// Package token owns the OAuth client-credentials access token lifecycle:
// load from the cache slot, check validity, refresh over the network, persist
// encrypted. Refresh is always lazy, on demand, right before use.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptopay/internal/metrics"
	"cryptopay/internal/model"
	"cryptopay/internal/secure"
	"cryptopay/internal/tokencache"
)

// AccessToken is the cached token record. ExpiresAt is always recomputed from
// the refresh response, never trusted from a stale cache without the validity
// check.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// Valid reports whether the token is usable at now.
func (t *AccessToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Unix() < t.ExpiresAt
}

// Manager walks the token state machine. All dependencies are explicit so
// tests can substitute a fake clock, cache and network.
type Manager struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Cache        tokencache.Slot
	Key          []byte
	HTTP         *http.Client
	Now          func() time.Time
}

func NewManager(authURL, clientID, clientSecret string, cache tokencache.Slot, key []byte) *Manager {
	return &Manager{
		AuthURL:      authURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Cache:        cache,
		Key:          key,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
		Now:          time.Now,
	}
}

// GetValidToken is the only entry point. It returns a usable token or an
// APIError; refresh failures never propagate as raw transport errors.
func (m *Manager) GetValidToken(ctx context.Context) (*AccessToken, *model.APIError) {
	blob, err := m.Cache.Get(ctx)
	if err != nil {
		log.Printf("token cache read failed: %v", err)
	}
	if blob != "" {
		if tok := m.decode(blob); tok != nil && tok.Valid(m.Now()) {
			return tok, nil
		}
	}
	return m.refresh(ctx)
}

// decode decrypts and unmarshals a cached blob. A corrupt blob is treated as
// an absent token, not a fatal error.
func (m *Manager) decode(blob string) *AccessToken {
	plain, err := secure.DecryptToken(blob, m.Key)
	if err != nil {
		log.Printf("cached token unusable: %v", err)
		return nil
	}
	var tok AccessToken
	if err := json.Unmarshal([]byte(plain), &tok); err != nil {
		log.Printf("cached token unusable: %v", err)
		return nil
	}
	return &tok
}

func (m *Manager) refresh(ctx context.Context) (*AccessToken, *model.APIError) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.ClientID},
		"client_secret": {m.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, m.refreshFailed("Failed to refresh access token", err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return nil, m.refreshFailed("Failed to refresh access token", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, m.refreshFailed("Failed to refresh access token", err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, m.refreshFailed("Failed to refresh access token", fmt.Sprintf("auth endpoint returned status %d", resp.StatusCode))
	}

	var tok AccessToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, m.refreshFailed("Invalid access token response", err.Error())
	}
	if tok.AccessToken == "" || tok.ExpiresIn <= 0 {
		return nil, m.refreshFailed("Invalid access token response", "No valid response received.")
	}
	tok.ExpiresAt = m.Now().Unix() + tok.ExpiresIn

	if err := m.persist(ctx, &tok); err != nil {
		log.Printf("token cache write failed: %v", err)
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return &tok, nil
}

func (m *Manager) persist(ctx context.Context, tok *AccessToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	blob, err := secure.EncryptToken(string(data), m.Key)
	if err != nil {
		return err
	}
	return m.Cache.Set(ctx, blob)
}

func (m *Manager) refreshFailed(code, detail string) *model.APIError {
	metrics.TokenRefreshes.WithLabelValues("error").Inc()
	log.Printf("token refresh failed: %s", detail)
	return model.NewAPIError(code, detail)
}
