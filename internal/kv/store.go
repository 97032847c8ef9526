package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistent key-value interface used for tokens and
// user-facing preferences. Values are strings or JSON-serialized strings;
// a zero ttl means the entry does not expire.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// Well-known keys. Token keys are owned by the api package; preference
// keys by the notify package.
const (
	KeyAccessToken      = "auth:access_token"
	KeyRefreshToken     = "auth:refresh_token"
	KeyAccessExpiresAt  = "auth:access_expires_at"
	KeyRefreshExpiresAt = "auth:refresh_expires_at"
	KeyNotificationPref = "pref:notifications"
)
