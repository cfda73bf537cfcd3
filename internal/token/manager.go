package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/spf13/cast"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultExpiresIn = 3600
	ExpiryMargin     = 60 * time.Second
	DefaultTimeout   = 10 * time.Second

	maxDetailLength = 200
)

// Token is the result of one client-credentials exchange.
type Token struct {
	AccessToken string
	ExpiresIn   int
	IssuedAt    time.Time
	Expiry      time.Time
}

type Manager struct {
	store   *credentials.Store
	client  *http.Client
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
}

type Option func(*Manager)

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *credentials.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValidToken returns a token for principalID that is valid at the time of
// the call, exchanging credentials at the SSO endpoint when needed.
func (m *Manager) EnsureValidToken(ctx context.Context, principalID string) (string, error) {
	tok, _, err := m.ensure(ctx, principalID)
	return tok, err
}

func (m *Manager) ensure(ctx context.Context, principalID string) (string, time.Time, error) {
	rec, err := m.configuredRecord(principalID)
	if err != nil {
		return "", time.Time{}, err
	}
	if rec.TokenValid(m.now()) {
		return rec.AccessToken, rec.TokenExpiry, nil
	}

	ch := m.group.DoChan(principalID, func() (any, error) {
		// Another flight may have refreshed while we waited.
		rec, err := m.configuredRecord(principalID)
		if err != nil {
			return nil, err
		}
		if rec.TokenValid(m.now()) {
			return Token{AccessToken: rec.AccessToken, Expiry: rec.TokenExpiry}, nil
		}
		return m.refresh(ctx, rec)
	})

	select {
	case <-ctx.Done():
		return "", time.Time{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", time.Time{}, res.Err
		}
		tok := res.Val.(Token)
		return tok.AccessToken, tok.Expiry, nil
	}
}

func (m *Manager) configuredRecord(principalID string) (credentials.Record, error) {
	rec, ok := m.store.Get(principalID)
	if !ok {
		return credentials.Record{}, notConfigured("no credentials for principal")
	}
	if strings.TrimSpace(rec.AuthHeader) == "" {
		return credentials.Record{}, notConfigured("authorization header missing")
	}
	if strings.TrimSpace(rec.PartnerID) == "" {
		return credentials.Record{}, notConfigured("partner id missing")
	}
	if !rec.Configured() {
		return credentials.Record{}, notConfigured("partner id is implausible")
	}
	return rec, nil
}

func (m *Manager) refresh(ctx context.Context, rec credentials.Record) (Token, error) {
	// The flight is shared, so one caller going away must not cancel it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	tok, err := m.Exchange(ctx, rec)
	if err != nil {
		slog.Warn("Token refresh failed", "principal_id", rec.PrincipalID, "error", err)
		return Token{}, err
	}

	err = m.store.SetToken(rec.PrincipalID, rec.Generation, tok.AccessToken, tok.Expiry)
	switch {
	case errors.Is(err, credentials.ErrRecordNotFound):
		return Token{}, notConfigured("credentials removed during refresh")
	case errors.Is(err, credentials.ErrRecordReplaced):
		slog.Debug("Credentials replaced during refresh, token not cached", "principal_id", rec.PrincipalID)
	case err != nil:
		return Token{}, fmt.Errorf("store token: %w", err)
	}

	slog.Info("Token refreshed", "principal_id", rec.PrincipalID, "expires_at", tok.Expiry)
	return tok, nil
}

// Exchange performs a single client-credentials exchange for rec without
// touching the store.
func (m *Manager) Exchange(ctx context.Context, rec credentials.Record) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", fmt.Sprintf("partnerId:%s role:partnerIdAdmin", rec.PartnerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.SSOEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &AuthError{Kind: ErrExchangeFailed, Err: err}
	}
	req.Header.Set("Authorization", rec.AuthHeader)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	issuedAt := m.now()
	resp, err := m.client.Do(req)
	if err != nil {
		return Token{}, &AuthError{Kind: ErrExchangeFailed, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &AuthError{Kind: ErrExchangeFailed, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, &AuthError{
			Kind:   ErrExchangeFailed,
			Status: resp.StatusCode,
			Detail: truncate(string(body), maxDetailLength),
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Token{}, &AuthError{Kind: ErrMalformedTokenResponse, Status: resp.StatusCode, Err: err}
	}

	accessToken, _ := cast.ToStringE(payload["access_token"])
	if accessToken == "" {
		return Token{}, &AuthError{Kind: ErrMalformedTokenResponse, Status: resp.StatusCode, Detail: "access_token missing"}
	}

	expiresIn, err := cast.ToIntE(payload["expires_in"])
	if err != nil || expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}

	return Token{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
		IssuedAt:    issuedAt,
		Expiry:      issuedAt.Add(time.Duration(expiresIn)*time.Second - ExpiryMargin),
	}, nil
}

// Invalidate discards the cached token if it is still the one the upstream
// rejected. It returns true when a token was cleared.
func (m *Manager) Invalidate(principalID, rejected string) bool {
	cleared := m.store.ClearToken(principalID, rejected)
	if cleared {
		slog.Info("Cached token invalidated", "principal_id", principalID)
	}
	return cleared
}

// TokenSource adapts the manager to oauth2.TokenSource for one principal.
func (m *Manager) TokenSource(ctx context.Context, principalID string) oauth2.TokenSource {
	return &principalSource{ctx: ctx, manager: m, principalID: principalID}
}

type principalSource struct {
	ctx         context.Context
	manager     *Manager
	principalID string
}

func (s *principalSource) Token() (*oauth2.Token, error) {
	tok, expiry, err := s.manager.ensure(s.ctx, s.principalID)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer", Expiry: expiry}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
