package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/score"
	"github.com/victornm/timestables/internal/telemetry"
)

const (
	defaultTimeout       = time.Hour
	defaultSweepInterval = 15 * time.Minute
)

type Generator interface {
	Generate(count int) ([]domain.Question, error)
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	Generator Generator

	// Timeout is the maximum age of a session, measured from its start time.
	Timeout       time.Duration
	SweepInterval time.Duration

	Now           func() time.Time
	NewTickerFunc func(d time.Duration) Ticker
	NewIDFunc     func() (string, error)
}

type entry struct {
	session domain.Session
	claimed bool
}

// Store is the in-memory registry of active sessions.
// Sessions never have their timeout extended; Get does not touch them.
type Store struct {
	gen           Generator
	timeout       time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	newTicker     func(d time.Duration) Ticker
	newID         func() (string, error)

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewStore(c Config) *Store {
	s := &Store{
		gen:           c.Generator,
		timeout:       c.Timeout,
		sweepInterval: c.SweepInterval,
		now:           c.Now,
		newTicker:     c.NewTickerFunc,
		newID:         c.NewIDFunc,
		sessions:      make(map[string]*entry),
	}

	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = defaultSweepInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newTicker == nil {
		s.newTicker = newTimeTicker
	}
	if s.newID == nil {
		s.newID = newUUID
	}

	return s
}

// Create generates questions for a new session and registers it.
func (s *Store) Create(questionCount int) (domain.Session, error) {
	questions, err := s.gen.Generate(questionCount)
	if err != nil {
		return domain.Session{}, err
	}

	id, err := s.newID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate session ID: %w", err)
	}

	ss := domain.Session{
		SessionID:        id,
		Questions:        questions,
		StartTime:        s.now(),
		TimeLimitSeconds: score.TimeLimit(questionCount),
	}

	s.mu.Lock()
	if _, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return domain.Session{}, fmt.Errorf("session ID collision: %s", id)
	}
	s.sessions[id] = &entry{session: ss}
	n := len(s.sessions)
	s.mu.Unlock()

	telemetry.SessionsActive.Set(float64(n))
	return ss, nil
}

func (s *Store) Get(id string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, false
	}
	return e.session, true
}

// Claim marks a session as being completed so that no other caller can claim it
// until it is released or deleted. It returns false if the session does not exist
// or is already claimed.
func (s *Store) Claim(id string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.claimed {
		return domain.Session{}, false
	}
	e.claimed = true
	return e.session, true
}

// Release undoes a Claim. It is a no-op if the session is gone.
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		e.claimed = false
	}
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	telemetry.SessionsActive.Set(float64(n))
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes every session older than the timeout and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.session.StartTime) > s.timeout {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	telemetry.SessionsActive.Set(float64(n))
	telemetry.SessionsExpired.Add(float64(removed))
	return removed
}

// Run sweeps expired sessions every sweep interval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	t := s.newTicker(s.sweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if n := s.Sweep(); n > 0 {
				slog.InfoContext(ctx, "session: swept expired sessions", "count", n)
			}
		}
	}
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }

func (t timeTicker) Stop() { t.t.Stop() }
