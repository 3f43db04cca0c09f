// Package gdocs implements the provider interface against the Google
// Docs and Drive REST APIs.
package gdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/docmarkapp/docmark-server/internal/provider"
	"github.com/docmarkapp/docmark-server/internal/ratelimit"
)

const (
	docsHost  = "docs.googleapis.com"
	driveHost = "www.googleapis.com"

	defaultTimeout = 30 * time.Second

	drivePageSize = 100
)

// Scopes requested during the OAuth flow. Documents plus read-only
// Drive listing.
var Scopes = []string{
	"https://www.googleapis.com/auth/documents",
	"https://www.googleapis.com/auth/drive.readonly",
	"openid", "email", "profile",
}

// Config holds the OAuth application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Client is a rate-limited Google Docs/Drive client. One instance serves
// every user; credentials come in with each call.
type Client struct {
	oauth   *oauth2.Config
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a Google Docs/Drive client. rps and burst bound each
// user's outbound request rate.
func New(cfg Config, rps float64, burst int, logger *slog.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(rps, burst),
		logger:  logger,
	}
}

// OAuthConfig exposes the underlying OAuth configuration for the login
// flow.
func (c *Client) OAuthConfig() *oauth2.Config {
	return c.oauth
}

// accessToken exchanges the user's refresh token for a live access
// token.
func (c *Client) accessToken(ctx context.Context, creds provider.Credentials) (string, error) {
	if creds.RefreshToken == "" {
		return "", provider.ErrAccessLost
	}

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	token, err := src.Token()
	if err != nil {
		// A revoked grant surfaces here as an oauth retrieve error.
		return "", fmt.Errorf("%w: %v", provider.ErrAccessLost, err)
	}
	return token.AccessToken, nil
}

// doRequest executes one authenticated API call with rate limiting and
// maps HTTP failures onto provider sentinel errors.
func (c *Client) doRequest(ctx context.Context, creds provider.Credentials, method, host, path string, query url.Values, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx, creds.UserID); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     path,
		RawQuery: query.Encode(),
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("google api request",
		"user_id", creds.UserID,
		"method", method,
		"host", host,
		"path", path,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return data, nil
	case http.StatusNotFound:
		return nil, provider.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, provider.ErrAccessLost
	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited
	default:
		if resp.StatusCode >= 500 {
			return nil, provider.ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
}
