package domain

const (
	EventNameRunCompleted       = "run.completed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

// EventRunCompleted is published once a run has been persisted and its session removed.
type EventRunCompleted struct {
	Run Run
}

func (EventRunCompleted) Name() string { return EventNameRunCompleted }

type EventLeaderboardUpdated struct {
	Leaderboard RunPage
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
