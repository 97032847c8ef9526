package api

import (
	"context"
	"net/http"
	"net/url"
)

// SignIn exchanges credentials for a token pair and persists it.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (TokenPair, error) {
	var pair TokenPair
	if err := c.public(ctx, http.MethodPost, "/sign-in", req, &pair); err != nil {
		return TokenPair{}, err
	}
	if err := c.tokens.Save(ctx, pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// SignUp registers an account; the backend sends an OTP to the phone.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	return c.public(ctx, http.MethodPost, "/sign-up", req, nil)
}

// ConfirmOTP completes registration and persists the returned pair.
func (c *Client) ConfirmOTP(ctx context.Context, req ConfirmOTPRequest) (TokenPair, error) {
	var pair TokenPair
	if err := c.public(ctx, http.MethodPost, "/confirm-otp", req, &pair); err != nil {
		return TokenPair{}, err
	}
	if err := c.tokens.Save(ctx, pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout invalidates the refresh token server-side and clears the local
// pair regardless of the call outcome.
func (c *Client) Logout(ctx context.Context) error {
	rt, _ := c.tokens.Refresh(ctx)
	var callErr error
	if rt != "" {
		callErr = c.authed(ctx, http.MethodPost, "/logout", refreshRequest{RefreshToken: rt}, nil)
	}
	if err := c.tokens.Clear(ctx); err != nil {
		return err
	}
	return callErr
}

func (c *Client) GetUser(ctx context.Context) (User, error) {
	var u User
	err := c.authed(ctx, http.MethodGet, "/user", nil, &u)
	return u, err
}

func (c *Client) UpdateUser(ctx context.Context, upd UserUpdate) (User, error) {
	var u User
	err := c.authed(ctx, http.MethodPatch, "/user", upd, &u)
	return u, err
}

// GetSessions lists the user's active charging sessions, optionally
// filtered by station.
func (c *Client) GetSessions(ctx context.Context, stationID string) ([]Session, error) {
	path := "/charging-sessions"
	if stationID != "" {
		path += "?station_id=" + url.QueryEscape(stationID)
	}
	var resp sessionsResponse
	if err := c.authed(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// StartSession begins charging on the given connector.
func (c *Client) StartSession(ctx context.Context, connectorID string) (Session, error) {
	var s Session
	err := c.authed(ctx, http.MethodPost, "/start-session", startSessionRequest{ConnectorID: connectorID}, &s)
	return s, err
}

// StopSession ends the given charging session.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	return c.authed(ctx, http.MethodPost, "/stop-session", stopSessionRequest{SessionID: sessionID}, nil)
}

func (c *Client) GetTransactions(ctx context.Context) ([]Transaction, error) {
	var resp transactionsResponse
	if err := c.authed(ctx, http.MethodGet, "/transactions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) GetLocations(ctx context.Context) ([]Location, error) {
	var resp locationsResponse
	if err := c.authed(ctx, http.MethodGet, "/locations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

func (c *Client) GetLocation(ctx context.Context, id string) (Location, error) {
	var loc Location
	err := c.authed(ctx, http.MethodGet, "/locations/"+url.PathEscape(id), nil, &loc)
	return loc, err
}

func (c *Client) GetNotificationPrefs(ctx context.Context) (NotificationPrefs, error) {
	var p NotificationPrefs
	err := c.authed(ctx, http.MethodGet, "/user-notifications", nil, &p)
	return p, err
}

func (c *Client) UpdateNotificationPrefs(ctx context.Context, p NotificationPrefs) error {
	return c.authed(ctx, http.MethodPut, "/user-notifications", p, nil)
}

// RegisterPushToken registers the device's FCM token for push delivery.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	return c.authed(ctx, http.MethodPost, "/fcm", registerPushRequest{Token: token}, nil)
}
