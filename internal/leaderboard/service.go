// Package leaderboard serves ranked pages of completed runs and announces
// leaderboard changes.
package leaderboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/event"
	"github.com/victornm/timestables/internal/run"
)

const (
	DefaultPageSize = 20

	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Runs     run.Repository
	// Redis is optional. Without it no leaderboard.updated events are published.
	Redis    redis.UniversalClient
	Prefix   string
	PageSize int
	Now      func() time.Time
}

type Service struct {
	eb       *event.Bus
	runs     run.Repository
	redis    redis.UniversalClient
	prefix   string
	pageSize int
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:       c.EventBus,
		runs:     c.Runs,
		redis:    c.Redis,
		prefix:   c.Prefix,
		pageSize: c.PageSize,
		now:      c.Now,
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.eb != nil && s.redis != nil {
		s.eb.Subscribe(domain.EventNameRunCompleted, func(ctx context.Context, e event.Event) error {
			return s.OnRunCompleted(ctx, e.(domain.EventRunCompleted))
		})
	}

	return s
}

type ListRequest struct {
	Page   int
	Search string
}

// List returns one page of the leaderboard. Pages start at 1; anything lower is
// treated as 1. The search is trimmed and matched case-insensitively against
// player names.
func (s *Service) List(ctx context.Context, req ListRequest) (*domain.RunPage, error) {
	p, err := s.runs.List(ctx, run.ListRequest{
		Page:     max(req.Page, 1),
		PageSize: s.pageSize,
		Search:   strings.TrimSpace(req.Search),
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return &p, nil
}

// GetRun returns a run together with its current rank.
func (s *Service) GetRun(ctx context.Context, id int64) (*domain.RankedRun, error) {
	r, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rank, err := s.runs.Rank(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.RankedRun{Run: r, Rank: rank}, nil
}

// OnRunCompleted schedules a leaderboard.updated announcement.
func (s *Service) OnRunCompleted(ctx context.Context, e domain.EventRunCompleted) error {
	// Runs are completed in bursts; one announcement per interval is enough for
	// every instance sharing the redis.
	ok, err := s.redis.SetNX(ctx, s.publishTimeKey(), s.now().UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: run=%d: %w", e.Run.ID, err)
	}
	if !ok {
		return nil
	}

	p, err := s.List(ctx, ListRequest{Page: 1})
	if err != nil {
		return fmt.Errorf("get first page: run=%d: %w", e.Run.ID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{Leaderboard: *p})
	return nil
}

func (s *Service) publishTimeKey() string {
	return fmt.Sprintf("%s:leaderboard:time", s.prefix)
}
