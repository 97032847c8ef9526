package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/kv"
)

// TokenPair is the credential set returned by sign-in and refresh.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

// TokenStore persists the token pair in the key-value store. It is the only
// writer of the auth:* keys; reads happen on every outgoing request.
type TokenStore struct {
	store kv.Store
}

func NewTokenStore(s kv.Store) *TokenStore {
	return &TokenStore{store: s}
}

// Save persists both tokens. The refresh token carries its own TTL so a
// stale pair ages out of the store even if Clear is never called.
func (s *TokenStore) Save(ctx context.Context, p TokenPair) error {
	refreshTTL := time.Duration(p.RefreshExpiresIn) * time.Second
	if err := s.store.Set(ctx, kv.KeyAccessToken, p.AccessToken, refreshTTL); err != nil {
		return err
	}
	if err := s.store.Set(ctx, kv.KeyRefreshToken, p.RefreshToken, refreshTTL); err != nil {
		return err
	}
	exp := accessExpiry(p)
	return s.store.Set(ctx, kv.KeyAccessExpiresAt, strconv.FormatInt(exp.Unix(), 10), refreshTTL)
}

// Access returns the persisted access token, or "" when none is stored.
func (s *TokenStore) Access(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, kv.KeyAccessToken)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Refresh returns the persisted refresh token, or "" when none is stored.
func (s *TokenStore) Refresh(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, kv.KeyRefreshToken)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// AccessExpiresAt reports when the stored access token expires. Zero time
// when unknown.
func (s *TokenStore) AccessExpiresAt(ctx context.Context) time.Time {
	v, err := s.store.Get(ctx, kv.KeyAccessExpiresAt)
	if err != nil {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Clear removes the whole pair. Called on logout and on refresh failure.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.store.Del(ctx, kv.KeyAccessToken); err != nil {
		return err
	}
	if err := s.store.Del(ctx, kv.KeyRefreshToken); err != nil {
		return err
	}
	return s.store.Del(ctx, kv.KeyAccessExpiresAt)
}

// accessExpiry derives the access token expiry. The backend sends
// expires_in; when the token parses as a JWT its exp claim wins, since it
// is the value the server actually enforces.
func accessExpiry(p TokenPair) time.Time {
	if claims := parseUnverifiedClaims(p.AccessToken); claims != nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(time.Duration(p.ExpiresIn) * time.Second)
}

func parseUnverifiedClaims(raw string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}
