package locator

import (
	"context"
	"sync"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Store keeps the in-memory sessions of all viewers. Sessions idle for
// longer than the TTL are closed and dropped by Sweep.
type Store struct {
	ctx     context.Context
	backend Backend
	opts    Options
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

// NewStore creates an empty store. Sessions live under ctx.
func NewStore(ctx context.Context, b Backend, opts Options, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		ctx:      ctx,
		backend:  b,
		opts:     opts,
		ttl:      ttl,
		metrics:  opts.Metrics,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Get returns the session with id and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.session, true
}

// Create starts a new session with a random id.
func (s *Store) Create(locale Locale) *Session {
	id := uuid.NewString()
	sess := NewSession(s.ctx, id, s.backend, locale, s.opts)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.Close()
		return sess
	}
	s.sessions[id] = &entry{session: sess, lastSeen: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	log.Debug().Str("session", id).Int("active", n).Msg("Session created")
	return sess
}

// GetOrCreate returns the session with id, or a new one if it is unknown or expired.
func (s *Store) GetOrCreate(id string, locale Locale) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(locale), true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and removes sessions idle for longer than the TTL.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*Session
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		s.metrics.SetActiveSessions(n)
		log.Info().Int("evicted", len(expired)).Int("active", n).Msg("Idle sessions evicted")
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close closes every session. Sessions created afterwards are closed at once.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
	s.metrics.SetActiveSessions(0)
}
