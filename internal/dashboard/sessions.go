package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSessionTTL evicts sessions idle for longer.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions bounds the registry; the least recently seen
	// session makes room for a new one.
	DefaultMaxSessions = 1000
)

// SessionGauge tracks the number of live sessions.
type SessionGauge interface {
	SetSessions(n int)
}

// SessionOptions tunes a Sessions registry.
type SessionOptions struct {
	TTL         time.Duration
	MaxSessions int
	Logger      *slog.Logger
	Gauge       SessionGauge
	Now         func() time.Time
}

type sessionEntry struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// Sessions maps browser session ids to started orchestrators. Idle sessions
// are evicted lazily on access and the oldest goes when the registry is full.
type Sessions struct {
	factory func() *Orchestrator
	ttl     time.Duration
	max     int
	logger  *slog.Logger
	gauge   SessionGauge
	now     func() time.Time
	group   singleflight.Group

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessions builds a registry whose orchestrators come from factory.
func NewSessions(factory func() *Orchestrator, opts SessionOptions) *Sessions {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sessions{
		factory: factory,
		ttl:     opts.TTL,
		max:     opts.MaxSessions,
		logger:  opts.Logger,
		gauge:   opts.Gauge,
		now:     opts.Now,
		entries: make(map[string]*sessionEntry),
	}
}

// Session is a resolved registry entry.
type Session struct {
	ID           string
	Orchestrator *Orchestrator
	// Created is true when this call started the orchestrator.
	Created bool
	// FirstSeq is the first batch of a freshly started orchestrator.
	FirstSeq uint64
}

// Acquire returns the live session for id, or creates and starts a new one.
// Concurrent callers with the same id share a single start. A session whose
// domain load fails is not retained, so the next request starts afresh.
func (s *Sessions) Acquire(ctx context.Context, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s.mu.Lock()
	s.evictLocked()
	if entry, ok := s.entries[id]; ok {
		entry.lastSeen = s.now()
		s.mu.Unlock()
		return Session{ID: id, Orchestrator: entry.orch}, nil
	}
	s.mu.Unlock()

	startCtx := context.WithoutCancel(ctx)
	resultCh := s.group.DoChan(id, func() (interface{}, error) {
		s.mu.Lock()
		if entry, ok := s.entries[id]; ok {
			entry.lastSeen = s.now()
			s.mu.Unlock()
			return Session{ID: id, Orchestrator: entry.orch}, nil
		}
		s.mu.Unlock()

		orch := s.factory()
		seq, err := orch.Start(startCtx)
		if err != nil {
			orch.Close()
			return nil, err
		}
		s.mu.Lock()
		for len(s.entries) >= s.max {
			s.evictOldestLocked()
		}
		s.entries[id] = &sessionEntry{orch: orch, lastSeen: s.now()}
		s.reportLocked()
		s.mu.Unlock()
		s.logger.Info("dashboard session started", slog.String("session", id))
		return Session{ID: id, Orchestrator: orch, Created: true, FirstSeq: seq}, nil
	})

	select {
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return Session{ID: id}, res.Err
		}
		sess := res.Val.(Session)
		if res.Shared {
			sess.Created = false
		}
		return sess, nil
	}
}

// Drop removes and closes a session.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[id]; ok {
		entry.orch.Close()
		delete(s.entries, id)
		s.reportLocked()
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close shuts down every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		entry.orch.Close()
		delete(s.entries, id)
	}
	s.reportLocked()
}

func (s *Sessions) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			entry.orch.Close()
			delete(s.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("dashboard sessions evicted", slog.Int("count", evicted))
		s.reportLocked()
	}
}

func (s *Sessions) evictOldestLocked() {
	var (
		oldestID string
		oldest   *sessionEntry
	)
	for id, entry := range s.entries {
		if oldest == nil || entry.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, entry
		}
	}
	if oldest == nil {
		return
	}
	oldest.orch.Close()
	delete(s.entries, oldestID)
	s.logger.Info("dashboard session evicted, registry full",
		slog.String("session", oldestID),
		slog.Int("max", s.max))
}

func (s *Sessions) reportLocked() {
	if s.gauge != nil {
		s.gauge.SetSessions(len(s.entries))
	}
}
