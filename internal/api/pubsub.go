package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/timestables/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	RunCompleted struct {
		Run  domain.Run `json:"run"`
		Rank *int       `json:"rank,omitempty"`
	}
)

// PublishLeaderboardUpdated sends the new first page to the leaderboard channel
// and to every player listed on it.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	if err := a.publishNotification(ctx, a.leaderboardChannel(), e.Name(), e.Leaderboard); err != nil {
		return err
	}

	// a player can appear more than once on a page
	players := make(map[string]struct{}, len(e.Leaderboard.Items))
	for _, r := range e.Leaderboard.Items {
		players[r.PlayerName] = struct{}{}
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for p := range players {
		eg.Go(func() error {
			return a.publishNotification(ctx, a.playerChannel(p), e.Name(), e.Leaderboard)
		})
	}

	return eg.Wait()
}

// PublishRunCompleted tells the player where the run landed.
func (a *API) PublishRunCompleted(ctx context.Context, e domain.EventRunCompleted) error {
	data := RunCompleted{Run: e.Run}

	if rr, err := a.ls.GetRun(ctx, e.Run.ID); err != nil {
		slog.WarnContext(ctx, "pubsub: rank lookup failed", "run_id", e.Run.ID, "error", err)
	} else {
		data.Run = rr.Run
		data.Rank = &rr.Rank
	}

	return a.publishNotification(ctx, a.playerChannel(e.Run.PlayerName), e.Name(), data)
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) leaderboardChannel() string {
	return fmt.Sprintf("%s:leaderboard", a.prefix)
}

func (a *API) playerChannel(name string) string {
	return fmt.Sprintf("%s:player:%s", a.prefix, name)
}
