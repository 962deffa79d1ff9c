// Package run persists completed runs and answers leaderboard queries.
package run

import (
	"context"

	"github.com/victornm/timestables/internal/domain"
)

// ListRequest selects one page of runs. Page is 1-indexed and is not clamped:
// an out-of-range page yields no items but correct totals.
type ListRequest struct {
	Page     int
	PageSize int
	// Search is matched case-insensitively as a literal substring of the player name.
	// Empty matches every run.
	Search string
}

// Repository is an append-only log of runs.
// Listing and ranking use the leaderboard ordering defined by domain.Run.Before.
type Repository interface {
	// Save appends a run and returns it as stored, with ID and CreatedAt assigned.
	// ID and CreatedAt of the argument are ignored.
	Save(ctx context.Context, r domain.Run) (domain.Run, error)
	Get(ctx context.Context, id int64) (domain.Run, error)
	List(ctx context.Context, req ListRequest) (domain.RunPage, error)
	// Rank returns the number of runs strictly better than the run with the given ID.
	Rank(ctx context.Context, id int64) (int, error)
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
