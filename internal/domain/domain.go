package domain

import (
	"time"
)

// Question is a single multiplication fact. ID is always "{Left}x{Right}".
type Question struct {
	ID    string `json:"id"`
	Left  int    `json:"left"`
	Right int    `json:"right"`
}

// Session represents an in-progress quiz attempt.
// It is immutable after creation; StartTime never leaves the server.
type Session struct {
	SessionID        string
	Questions        []Question
	StartTime        time.Time
	TimeLimitSeconds int
}

// View returns the client-facing part of the session.
func (s Session) View() SessionView {
	return SessionView{
		SessionID:        s.SessionID,
		Questions:        s.Questions,
		TimeLimitSeconds: s.TimeLimitSeconds,
	}
}

type SessionView struct {
	SessionID        string     `json:"sessionId"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
}

// Answer is a client-supplied answer. Value is NaN when the client sent
// something that is not a number.
type Answer struct {
	QuestionID string
	Value      float64
}

type ScoreBreakdown struct {
	Score            int `json:"score"`
	BasePoints       int `json:"basePoints"`
	FloorScore       int `json:"floorScore"`
	TimeBonus        int `json:"timeBonus"`
	TimeLimitSeconds int `json:"timeLimitSeconds"`
}

// Run is the persisted outcome of one completed session.
type Run struct {
	ID               int64     `json:"id"`
	PlayerName       string    `json:"playerName"`
	Score            int       `json:"score"`
	QuestionCount    int       `json:"questionCount"`
	CorrectCount     int       `json:"correctCount"`
	ElapsedSeconds   float64   `json:"elapsedSeconds"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Before reports whether r ranks strictly better than o on the leaderboard:
// higher score, then faster, then earlier, then lower id.
func (r Run) Before(o Run) bool {
	if r.Score != o.Score {
		return r.Score > o.Score
	}
	if r.ElapsedSeconds != o.ElapsedSeconds {
		return r.ElapsedSeconds < o.ElapsedSeconds
	}
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.Before(o.CreatedAt)
	}
	return r.ID < o.ID
}

// RankedRun pairs a run with its zero-based leaderboard rank.
type RankedRun struct {
	Run  Run `json:"run"`
	Rank int `json:"rank"`
}

// RunPage is one page of the leaderboard.
type RunPage struct {
	Items      []Run `json:"items"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// CompletionResult is returned to the player after a successful completion.
type CompletionResult struct {
	ScoreBreakdown
	RunID          int64   `json:"runId"`
	Rank           *int    `json:"rank,omitempty"`
	PlayerName     string  `json:"playerName"`
	QuestionCount  int     `json:"questionCount"`
	CorrectCount   int     `json:"correctCount"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}
