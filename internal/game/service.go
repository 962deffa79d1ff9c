// Package game drives a quiz session from start to a persisted run.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/errors"
	"github.com/victornm/timestables/internal/event"
	"github.com/victornm/timestables/internal/question"
	"github.com/victornm/timestables/internal/run"
	"github.com/victornm/timestables/internal/score"
	"github.com/victornm/timestables/internal/session"
	"github.com/victornm/timestables/internal/telemetry"
)

type Config struct {
	EventBus *event.Bus
	Sessions *session.Store
	Runs     run.Repository
	Now      func() time.Time
}

type Service struct {
	eb       *event.Bus
	sessions *session.Store
	runs     run.Repository
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:       c.EventBus,
		sessions: c.Sessions,
		runs:     c.Runs,
		now:      c.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type StartSessionRequest struct {
	QuestionCount int
}

// StartSession creates a new active session. The start time stays on the server.
func (s *Service) StartSession(ctx context.Context, req StartSessionRequest) (*domain.SessionView, error) {
	ss, err := s.sessions.Create(req.QuestionCount)
	if err != nil {
		return nil, err
	}

	telemetry.SessionsStarted.Inc()
	slog.DebugContext(ctx, "game: session started",
		"session_id", ss.SessionID,
		"question_count", len(ss.Questions),
	)

	v := ss.View()
	return &v, nil
}

// SessionActive reports whether a session can still be completed.
func (s *Service) SessionActive(id string) bool {
	_, ok := s.sessions.Get(id)
	return ok
}

type CompleteSessionRequest struct {
	SessionID  string
	PlayerName string
	Answers    []domain.Answer
}

// CompleteSession grades the answers of an active session, persists the run and
// removes the session. Either the run is persisted and the session is gone, or
// nothing is persisted.
//
// An answer referencing a question outside the session discards the session.
func (s *Service) CompleteSession(ctx context.Context, req CompleteSessionRequest) (*domain.CompletionResult, error) {
	ss, ok := s.sessions.Claim(req.SessionID)
	if !ok {
		return nil, errors.NotFoundf("session not found or expired: %s", req.SessionID)
	}

	// elapsed time is measured here, never taken from the client
	elapsed := elapsedSeconds(ss.StartTime, s.now())

	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		s.sessions.Release(ss.SessionID)
		return nil, errors.InvalidArgumentf("player name is required")
	}

	if len(req.Answers) != len(ss.Questions) {
		s.sessions.Release(ss.SessionID)
		return nil, errors.InvalidArgumentf("expected %d answers, got %d", len(ss.Questions), len(req.Answers))
	}

	correct, err := grade(ss, req.Answers)
	if err != nil {
		s.sessions.Delete(ss.SessionID)
		telemetry.SessionsRejected.Inc()
		slog.InfoContext(ctx, "game: session rejected",
			"session_id", ss.SessionID,
			"error", err,
		)
		return nil, err
	}

	b := score.Compute(len(ss.Questions), correct, elapsed)

	r, err := s.runs.Save(ctx, domain.Run{
		PlayerName:       name,
		Score:            b.Score,
		QuestionCount:    len(ss.Questions),
		CorrectCount:     correct,
		ElapsedSeconds:   elapsed,
		TimeLimitSeconds: b.TimeLimitSeconds,
	})
	if err != nil {
		s.sessions.Release(ss.SessionID)
		return nil, errors.Internal(fmt.Errorf("save run: session=%s: %w", ss.SessionID, err))
	}

	s.sessions.Delete(ss.SessionID)
	telemetry.SessionsCompleted.Inc()
	telemetry.RunScores.Observe(float64(r.Score))

	res := &domain.CompletionResult{
		ScoreBreakdown: b,
		RunID:          r.ID,
		PlayerName:     name,
		QuestionCount:  r.QuestionCount,
		CorrectCount:   correct,
		ElapsedSeconds: elapsed,
	}

	// The run is already persisted; a failed rank lookup must not fail the completion.
	if rank, err := s.runs.Rank(ctx, r.ID); err != nil {
		slog.WarnContext(ctx, "game: rank lookup failed", "run_id", r.ID, "error", err)
	} else {
		res.Rank = &rank
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventRunCompleted{Run: r})
	}

	return res, nil
}

// grade counts correct answers. Answers that are not finite numbers count as wrong.
func grade(ss domain.Session, answers []domain.Answer) (int, error) {
	byID := make(map[string]domain.Question, len(ss.Questions))
	for _, q := range ss.Questions {
		byID[q.ID] = q
	}

	correct := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return 0, errors.InvalidArgumentf("invalid question reference: %q", a.QuestionID)
		}

		if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
			continue
		}

		want, err := question.CorrectAnswer(q.ID)
		if err != nil {
			return 0, err
		}
		if a.Value == float64(want) {
			correct++
		}
	}

	return correct, nil
}

// elapsedSeconds is rounded to hundredths and never negative.
func elapsedSeconds(start, now time.Time) float64 {
	d := now.Sub(start)
	if d < 0 {
		d = 0
	}
	return decimal.NewFromFloat(d.Seconds()).Round(2).InexactFloat64()
}
