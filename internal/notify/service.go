package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/api"
	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/kv"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
)

// NotifyAPI is the slice of the API client the service depends on.
type NotifyAPI interface {
	GetNotificationPrefs(ctx context.Context) (api.NotificationPrefs, error)
	UpdateNotificationPrefs(ctx context.Context, p api.NotificationPrefs) error
	RegisterPushToken(ctx context.Context, token string) error
}

// Service caches the user's notification preferences through the kv store
// and registers device push tokens. Subscribers observe preference changes.
type Service struct {
	api   NotifyAPI
	store kv.Store

	mu      sync.Mutex
	subs    map[int]chan api.NotificationPrefs
	nextSub int
}

func New(notifyAPI NotifyAPI, store kv.Store) *Service {
	return &Service{
		api:   notifyAPI,
		store: store,
		subs:  make(map[int]chan api.NotificationPrefs),
	}
}

// Subscribe registers a listener for preference updates.
func (s *Service) Subscribe() (<-chan api.NotificationPrefs, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan api.NotificationPrefs, 4)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Prefs reads the preferences, serving the cached copy when present and
// falling back to the backend (which then refills the cache).
func (s *Service) Prefs(ctx context.Context) (api.NotificationPrefs, error) {
	if raw, err := s.store.Get(ctx, kv.KeyNotificationPref); err == nil {
		var p api.NotificationPrefs
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return p, nil
		}
		// corrupt cache entry: drop it and refetch
		_ = s.store.Del(ctx, kv.KeyNotificationPref)
	}

	p, err := s.api.GetNotificationPrefs(ctx)
	if err != nil {
		return api.NotificationPrefs{}, err
	}
	s.cache(ctx, p)
	return p, nil
}

// UpdatePrefs pushes new preferences to the backend, refreshes the cache
// and notifies subscribers.
func (s *Service) UpdatePrefs(ctx context.Context, p api.NotificationPrefs) error {
	if err := s.api.UpdateNotificationPrefs(ctx, p); err != nil {
		return err
	}
	s.cache(ctx, p)

	s.mu.Lock()
	for id, ch := range s.subs {
		select {
		case ch <- p:
		default:
			logger.Warnf("notify: subscriber %d lagging, dropped prefs update", id)
		}
	}
	s.mu.Unlock()
	return nil
}

// RegisterDevice registers the device's FCM token for push delivery.
func (s *Service) RegisterDevice(ctx context.Context, fcmToken string) error {
	if err := s.api.RegisterPushToken(ctx, fcmToken); err != nil {
		return err
	}
	logger.Infof("notify: push token registered")
	return nil
}

func (s *Service) cache(ctx context.Context, p api.NotificationPrefs) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, kv.KeyNotificationPref, string(raw), 0); err != nil {
		logger.Warnf("notify: caching prefs: %v", err)
	}
}
