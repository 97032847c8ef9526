package charging

import (
	"context"
	"sync"
	"time"

	"github.com/chapski-dev/bps-energy-mobile-sub000/internal/api"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/logger"
	"github.com/chapski-dev/bps-energy-mobile-sub000/pkg/metrics"
)

// SessionAPI is the slice of the API client the service depends on.
type SessionAPI interface {
	GetSessions(ctx context.Context, stationID string) ([]api.Session, error)
	StartSession(ctx context.Context, connectorID string) (api.Session, error)
	StopSession(ctx context.Context, sessionID string) error
}

type pollState int

const (
	pollIdle pollState = iota
	pollRunning
)

const subscriberBuffer = 16

// Service keeps the client-visible cache of active charging sessions and
// refreshes it on a timer while at least one session is active. The poll
// timer exists exactly when the cache is non-empty; transitions are owned
// by syncPoller under the service mutex. An in-flight guard keeps poll
// ticks and explicit FetchSessions calls from overlapping.
type Service struct {
	api      SessionAPI
	interval time.Duration

	mu       sync.Mutex
	cache    []api.Session
	state    pollState
	stopPoll chan struct{}
	fetching bool
	closed   bool
	subs     map[int]chan Event
	nextSub  int
}

func New(sessionAPI SessionAPI, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		api:      sessionAPI,
		interval: interval,
		subs:     make(map[int]chan Event),
	}
}

// Subscribe registers an event listener. The returned function removes it;
// the channel is closed on unsubscribe and on Close.
func (s *Service) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, subscriberBuffer)
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

// CachedSessions returns a copy of the in-memory cache. No side effects.
func (s *Service) CachedSessions() []api.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Session, len(s.cache))
	copy(out, s.cache)
	return out
}

// StartSession begins charging on a connector and merges the resulting
// session into the cache. Loading is always cleared, success or failure.
func (s *Service) StartSession(ctx context.Context, connectorID string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	sess, err := s.api.StartSession(ctx, connectorID)
	if err != nil {
		s.emitLocked(Event{Kind: EventError, Err: err})
		return err
	}

	s.mu.Lock()
	s.mergeSession(sess)
	cache := s.cacheCopy()
	s.emit(Event{Kind: EventStarted, Session: &sess})
	s.emit(Event{Kind: EventUpdated, Sessions: cache})
	s.syncPoller()
	s.mu.Unlock()

	logger.Infof("charging: session %s started on connector %s", sess.ID, connectorID)
	return nil
}

// StopSession ends a session and drops it from the cache by id.
func (s *Service) StopSession(ctx context.Context, sessionID string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.api.StopSession(ctx, sessionID); err != nil {
		s.emitLocked(Event{Kind: EventError, Err: err})
		return err
	}

	s.mu.Lock()
	kept := s.cache[:0]
	for _, sess := range s.cache {
		if sess.ID != sessionID {
			kept = append(kept, sess)
		}
	}
	s.cache = kept
	cache := s.cacheCopy()
	s.emit(Event{Kind: EventUpdated, Sessions: cache})
	s.emit(Event{Kind: EventStopped, SessionID: sessionID})
	s.syncPoller()
	s.mu.Unlock()

	logger.Infof("charging: session %s stopped", sessionID)
	return nil
}

// FetchSessions refreshes the cache from the backend. Overlapping calls
// (e.g. a poll tick racing a manual refresh) are coalesced: the second
// call returns immediately without fetching.
func (s *Service) FetchSessions(ctx context.Context, stationID string) error {
	s.mu.Lock()
	if s.fetching || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.fetching = true
	s.mu.Unlock()

	s.setLoading(true)
	defer s.setLoading(false)

	sessions, err := s.api.GetSessions(ctx, stationID)

	s.mu.Lock()
	s.fetching = false
	if err != nil {
		// the cache stays as it was; the poller follows the current size
		s.emit(Event{Kind: EventError, Err: err})
		s.syncPoller()
		s.mu.Unlock()
		return err
	}
	s.cache = sessions
	cache := s.cacheCopy()
	s.emit(Event{Kind: EventUpdated, Sessions: cache})
	s.syncPoller()
	s.mu.Unlock()
	return nil
}

// Close stops the poller and closes all subscriber channels.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.state == pollRunning {
		close(s.stopPoll)
		s.state = pollIdle
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// syncPoller moves the {Idle, Running} machine to match the cache size.
// Callers must hold s.mu.
func (s *Service) syncPoller() {
	if s.closed {
		return
	}
	switch {
	case len(s.cache) > 0 && s.state == pollIdle:
		s.stopPoll = make(chan struct{})
		s.state = pollRunning
		go s.pollLoop(s.stopPoll)
		logger.Debugf("charging: poller started (interval %s)", s.interval)
	case len(s.cache) == 0 && s.state == pollRunning:
		close(s.stopPoll)
		s.state = pollIdle
		logger.Debugf("charging: poller stopped")
	}
}

func (s *Service) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			metrics.SessionPolls.Inc()
			if err := s.FetchSessions(context.Background(), ""); err != nil {
				// already surfaced as an EventError; the loop itself survives
				logger.Warnf("charging: poll failed: %v", err)
			}
		}
	}
}

// mergeSession inserts or replaces by id. Callers must hold s.mu.
func (s *Service) mergeSession(sess api.Session) {
	for i := range s.cache {
		if s.cache[i].ID == sess.ID {
			s.cache[i] = sess
			return
		}
	}
	s.cache = append(s.cache, sess)
}

func (s *Service) cacheCopy() []api.Session {
	out := make([]api.Session, len(s.cache))
	copy(out, s.cache)
	return out
}

func (s *Service) setLoading(v bool) {
	s.emitLocked(Event{Kind: EventLoading, Loading: v})
}

// emit delivers to all subscribers without blocking; a full subscriber
// drops the event. Callers must hold s.mu.
func (s *Service) emit(ev Event) {
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			logger.Warnf("charging: subscriber %d lagging, dropped %s event", id, ev.Kind)
		}
	}
}

func (s *Service) emitLocked(ev Event) {
	s.mu.Lock()
	s.emit(ev)
	s.mu.Unlock()
}
