package plume

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EternisAI/panoptes/internal/credentials"
	"golang.org/x/oauth2"
)

const (
	DefaultSSOEndpoint    = "https://external.sso.plume.com/oauth2/ausc034rgdEZKz75I357/v1/token"
	DefaultAPIBase        = "https://piranha-gamma.prod.us-west-2.aws.plumenet.io/api/"
	DefaultRequestTimeout = 10 * time.Second

	maxBodySnippet = 300
)

type Config struct {
	SSOEndpoint    string        `mapstructure:"sso_endpoint"`
	APIBase        string        `mapstructure:"api_base"`
	ReportsBase    string        `mapstructure:"reports_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ReauthOnReject bool          `mapstructure:"reauth_on_reject"`
}

// Endpoints returns the configured bases with defaults filled in.
func (c Config) Endpoints() credentials.Endpoints {
	ep := credentials.Endpoints{
		SSOEndpoint: c.SSOEndpoint,
		APIBase:     c.APIBase,
		ReportsBase: c.ReportsBase,
	}
	if ep.SSOEndpoint == "" {
		ep.SSOEndpoint = DefaultSSOEndpoint
	}
	if ep.APIBase == "" {
		ep.APIBase = DefaultAPIBase
	}
	return ep
}

// TokenProvider hands out bearer tokens per principal.
type TokenProvider interface {
	TokenSource(ctx context.Context, principalID string) oauth2.TokenSource
	Invalidate(principalID, rejected string) bool
}

// RecordSource resolves a principal's endpoint bases.
type RecordSource interface {
	Get(principalID string) (credentials.Record, bool)
}

type Request struct {
	Method         string
	Endpoint       string
	Query          url.Values
	Body           any
	UseReportsBase bool
}

type Client struct {
	tokens         TokenProvider
	records        RecordSource
	httpClient     *http.Client
	timeout        time.Duration
	reauthOnReject bool
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func NewClient(tokens TokenProvider, records RecordSource, cfg Config, opts ...Option) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c := &Client{
		tokens:         tokens,
		records:        records,
		httpClient:     http.DefaultClient,
		timeout:        timeout,
		reauthOnReject: cfg.ReauthOnReject,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute performs one authenticated call and returns the decoded JSON body.
// When re-authentication is enabled, a 401/403 invalidates the rejected token
// and the call is repeated exactly once.
func (c *Client) Execute(ctx context.Context, principalID string, req Request) (any, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, ErrMissingPrincipal
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	req.Method = strings.ToUpper(req.Method)

	result, used, err := c.executeOnce(ctx, principalID, req)
	if err == nil || !c.reauthOnReject || !errors.Is(err, ErrAuthRejected) {
		return result, err
	}

	slog.Info("Upstream rejected token, re-authenticating once",
		"principal_id", principalID,
		"endpoint", req.Endpoint)
	c.tokens.Invalidate(principalID, used)

	result, _, err = c.executeOnce(ctx, principalID, req)
	return result, err
}

func (c *Client) executeOnce(ctx context.Context, principalID string, req Request) (any, string, error) {
	apiErr := func(kind error, status int, body string, cause error) *APIError {
		return &APIError{Kind: kind, Method: req.Method, Endpoint: req.Endpoint, Status: status, Body: body, Err: cause}
	}

	tok, err := c.tokens.TokenSource(ctx, principalID).Token()
	if err != nil {
		return nil, "", apiErr(ErrUnauthenticated, 0, "", err)
	}

	rec, _ := c.records.Get(principalID)
	base := rec.APIBase
	if req.UseReportsBase && rec.ReportsBase != "" {
		base = rec.ReportsBase
	}
	target := joinURL(base, req.Endpoint)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, tok.AccessToken, apiErr(ErrInvalidArgument, 0, "", err)
		}
		body = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, tok.AccessToken, apiErr(ErrTransport, 0, "", err)
	}
	tok.SetAuthHeader(httpReq)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, tok.AccessToken, apiErr(ErrTimeout, 0, "", err)
		}
		return nil, tok.AccessToken, apiErr(ErrTransport, 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, tok.AccessToken, apiErr(ErrTimeout, resp.StatusCode, "", err)
		}
		return nil, tok.AccessToken, apiErr(ErrTransport, resp.StatusCode, "", err)
	}

	slog.Debug("Plume request completed",
		"principal_id", principalID,
		"method", req.Method,
		"endpoint", req.Endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, tok.AccessToken, apiErr(ErrAuthRejected, resp.StatusCode, snippet(raw), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, tok.AccessToken, apiErr(ErrHTTPStatus, resp.StatusCode, snippet(raw), nil)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, tok.AccessToken, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, tok.AccessToken, apiErr(ErrMalformedResponse, resp.StatusCode, snippet(raw), err)
	}
	return decoded, tok.AccessToken, nil
}

func joinURL(base, endpoint string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxBodySnippet {
		return s[:maxBodySnippet]
	}
	return s
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
