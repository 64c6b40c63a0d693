package completion

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenSource hands out the bearer token for completion calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops the cached token so the next Token call fetches a new one.
	Invalidate()
}

// StaticToken is a fixed API key.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", errNoCredentials
	}
	return string(s), nil
}

func (StaticToken) Invalidate() {}

type OAuthConfig struct {
	AuthURL      string
	Scope        string
	ClientID     string
	ClientSecret string
	// Credentials is the pre-encoded base64(client_id:client_secret) key.
	Credentials string
	// AccessToken seeds the cache with a token obtained out of band.
	AccessToken string
}

// expiry is shaved by this much so a token is not used right before it lapses
const expirySkew = time.Minute

// OAuthTokens exchanges client credentials for an access token and caches it
// until it expires or is invalidated.
type OAuthTokens struct {
	authURL string
	scope   string
	basic   string
	client  *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewOAuthTokens(cfg OAuthConfig, client *http.Client) *OAuthTokens {
	if client == nil {
		client = http.DefaultClient
	}
	basic := strings.TrimSpace(cfg.Credentials)
	if basic == "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		basic = base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	}
	return &OAuthTokens{
		authURL: cfg.AuthURL,
		scope:   cfg.Scope,
		basic:   basic,
		client:  client,
		token:   strings.TrimSpace(cfg.AccessToken),
		now:     time.Now,
	}
}

func (o *OAuthTokens) Token(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.token != "" && (o.expiresAt.IsZero() || o.now().Before(o.expiresAt.Add(-expirySkew))) {
		return o.token, nil
	}
	if o.basic == "" {
		return "", errNoCredentials
	}
	token, expiresAt, err := o.fetch(ctx)
	if err != nil {
		return "", err
	}
	o.token, o.expiresAt = token, expiresAt
	return token, nil
}

func (o *OAuthTokens) Invalidate() {
	o.mu.Lock()
	o.token = ""
	o.expiresAt = time.Time{}
	o.mu.Unlock()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (o *OAuthTokens) fetch(ctx context.Context) (string, time.Time, error) {
	form := url.Values{"scope": {o.scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", "Basic "+o.basic)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", time.Time{}, &AuthError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode auth response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, &AuthError{StatusCode: resp.StatusCode, Body: "response has no access_token"}
	}
	return tr.AccessToken, expiryTime(tr.ExpiresAt), nil
}

// expiryTime accepts expires_at in either milliseconds or seconds since the epoch.
func expiryTime(v int64) time.Time {
	switch {
	case v <= 0:
		return time.Time{}
	case v > 1e12:
		return time.UnixMilli(v)
	default:
		return time.Unix(v, 0)
	}
}

// NewHTTPClient returns the client used for outbound API calls. GigaChat
// certificates are issued by a national CA missing from most trust stores.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
