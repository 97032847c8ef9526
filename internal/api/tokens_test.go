package api

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/kv"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "u1",
		"iat": time.Now().Unix(),
		"exp": exp.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(kv.NewMemory())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, TokenPair{
		AccessToken:      "at",
		RefreshToken:     "rt",
		ExpiresIn:        900,
		RefreshExpiresIn: 86400,
	}))

	access, err := store.Access(ctx)
	require.NoError(t, err)
	require.Equal(t, "at", access)

	refresh, err := store.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "rt", refresh)

	require.NoError(t, store.Clear(ctx))
	access, err = store.Access(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestAccessExpiryPrefersJWTClaim(t *testing.T) {
	exp := time.Now().Add(42 * time.Minute).Truncate(time.Second)
	pair := TokenPair{
		AccessToken: signedToken(t, exp),
		ExpiresIn:   900, // disagrees with the claim on purpose
	}
	got := accessExpiry(pair)
	require.WithinDuration(t, exp, got, time.Second)
}

func TestAccessExpiryFallsBackToExpiresIn(t *testing.T) {
	pair := TokenPair{AccessToken: "opaque-token", ExpiresIn: 900}
	got := accessExpiry(pair)
	require.WithinDuration(t, time.Now().Add(900*time.Second), got, 2*time.Second)
}

func TestAccessExpiresAtPersisted(t *testing.T) {
	store := NewTokenStore(kv.NewMemory())
	ctx := context.Background()

	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	require.NoError(t, store.Save(ctx, TokenPair{
		AccessToken:      signedToken(t, exp),
		RefreshToken:     "rt",
		RefreshExpiresIn: 86400,
	}))

	got := store.AccessExpiresAt(ctx)
	require.WithinDuration(t, exp, got, time.Second)
}
