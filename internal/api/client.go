package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/metrics"
)

// Client is the authenticated API client. Every call attaches the stored
// bearer token; a 401 on a not-yet-retried request triggers exactly one
// refresh-token exchange no matter how many calls hit the 401 window, and
// each victim resubmits once with the fresh token. When the refresh itself
// fails, tokens are cleared, the logout hook fires, and every waiter gets
// ErrSessionExpired.
type Client struct {
	transport *Transport
	tokens    *TokenStore
	onLogout  func()
	refreshSF singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithLogoutHook registers the callback invoked when a refresh-token
// exchange fails. Replaces the app-global dispatch binding: the dependency
// is explicit and set at construction.
func WithLogoutHook(fn func()) Option {
	return func(c *Client) {
		c.onLogout = fn
	}
}

func NewClient(t *Transport, tokens *TokenStore, opts ...Option) *Client {
	c := &Client{
		transport: t,
		tokens:    tokens,
		onLogout:  func() {},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tokens exposes the underlying token store (sign-in persists through it).
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// public performs an unauthenticated call (sign-in, sign-up, refresh).
func (c *Client) public(ctx context.Context, method, path string, body, out interface{}) error {
	return c.transport.DoJSON(ctx, method, path, body, out, nil)
}

// authed performs a bearer-authenticated call with 401 recovery.
func (c *Client) authed(ctx context.Context, method, path string, body, out interface{}) error {
	tok, err := c.tokens.Access(ctx)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	err = c.transport.DoJSON(ctx, method, path, body, out, bearerHeader(tok))
	if !isUnauthorized(err) {
		return err
	}

	// single retry after refresh; a second 401 propagates as-is
	newTok, refreshErr := c.refresh(ctx)
	if refreshErr != nil {
		return refreshErr
	}
	return c.transport.DoJSON(ctx, method, path, body, out, bearerHeader(newTok))
}

// refresh performs the refresh-token exchange. Concurrent callers share a
// single in-flight exchange and all observe its result, success or failure.
func (c *Client) refresh(ctx context.Context) (string, error) {
	v, err, _ := c.refreshSF.Do("refresh", func() (interface{}, error) {
		rt, err := c.tokens.Refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("load refresh token: %w", err)
		}
		if rt == "" {
			return nil, ErrSessionExpired
		}

		var pair TokenPair
		if err := c.public(ctx, http.MethodPost, "/refresh-token", refreshRequest{RefreshToken: rt}, &pair); err != nil {
			metrics.TokenRefreshes.WithLabelValues("failure").Inc()
			logger.Warnf("token refresh failed: %v", err)
			if clearErr := c.tokens.Clear(ctx); clearErr != nil {
				logger.Errorf("clearing tokens after failed refresh: %v", clearErr)
			}
			c.onLogout()
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}

		if err := c.tokens.Save(ctx, pair); err != nil {
			return nil, fmt.Errorf("persist refreshed tokens: %w", err)
		}
		metrics.TokenRefreshes.WithLabelValues("success").Inc()
		logger.Debugf("token refresh succeeded, access expires %s", accessExpiry(pair))
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func bearerHeader(token string) http.Header {
	if token == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
