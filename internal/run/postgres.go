package run

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/errors"
)

// PostgresRepository stores runs in the runs table. created_at is assigned by
// the database; ties are broken by id, which follows insertion order.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const runColumns = `id, player_name, score, question_count, correct_count, elapsed_seconds, time_limit_seconds, created_at`

func (p *PostgresRepository) Save(ctx context.Context, r domain.Run) (domain.Run, error) {
	const stmt = `
INSERT INTO runs (player_name, score, question_count, correct_count, elapsed_seconds, time_limit_seconds)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at;`

	err := p.db.QueryRow(ctx, stmt,
		r.PlayerName, r.Score, r.QuestionCount, r.CorrectCount, r.ElapsedSeconds, r.TimeLimitSeconds,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return domain.Run{}, fmt.Errorf("insert run: %w", err)
	}

	return r, nil
}

func (p *PostgresRepository) Get(ctx context.Context, id int64) (domain.Run, error) {
	const stmt = `SELECT ` + runColumns + ` FROM runs WHERE id = $1;`

	rows, err := p.db.Query(ctx, stmt, id)
	if err != nil {
		return domain.Run{}, fmt.Errorf("get run: %w", err)
	}

	r, err := pgx.CollectExactlyOneRow(rows, scanRun)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Run{}, errors.NotFoundf("run %d not found", id)
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("get run: %w", err)
	}

	return r, nil
}

func (p *PostgresRepository) List(ctx context.Context, req ListRequest) (domain.RunPage, error) {
	const (
		listStmt = `
SELECT ` + runColumns + `
FROM runs
WHERE player_name ILIKE $1
ORDER BY score DESC, elapsed_seconds ASC, created_at ASC, id ASC
LIMIT $2 OFFSET $3;`

		countStmt = `SELECT COUNT(*) FROM runs WHERE player_name ILIKE $1;`
	)

	pattern := likePattern(req.Search)

	var total int
	if err := p.db.QueryRow(ctx, countStmt, pattern).Scan(&total); err != nil {
		return domain.RunPage{}, fmt.Errorf("count runs: %w", err)
	}

	page := domain.RunPage{
		Items:      []domain.Run{},
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(total, req.PageSize),
	}

	offset := (req.Page - 1) * req.PageSize
	if req.PageSize <= 0 || offset < 0 || offset >= total {
		return page, nil
	}

	rows, err := p.db.Query(ctx, listStmt, pattern, req.PageSize, offset)
	if err != nil {
		return domain.RunPage{}, fmt.Errorf("list runs: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return domain.RunPage{}, fmt.Errorf("list runs: %w", err)
	}
	page.Items = items

	return page, nil
}

func (p *PostgresRepository) Rank(ctx context.Context, id int64) (int, error) {
	const stmt = `
SELECT COUNT(*)
FROM runs r, (SELECT score, elapsed_seconds, created_at, id FROM runs WHERE id = $1) t
WHERE r.score > t.score
   OR (r.score = t.score AND r.elapsed_seconds < t.elapsed_seconds)
   OR (r.score = t.score AND r.elapsed_seconds = t.elapsed_seconds AND r.created_at < t.created_at)
   OR (r.score = t.score AND r.elapsed_seconds = t.elapsed_seconds AND r.created_at = t.created_at AND r.id < t.id);`

	// Existence is checked separately: the count is 0 both for the best run and for an unknown id.
	if _, err := p.Get(ctx, id); err != nil {
		return 0, err
	}

	var rank int
	if err := p.db.QueryRow(ctx, stmt, id).Scan(&rank); err != nil {
		return 0, fmt.Errorf("rank run: %w", err)
	}

	return rank, nil
}

func scanRun(row pgx.CollectableRow) (domain.Run, error) {
	var r domain.Run
	err := row.Scan(
		&r.ID,
		&r.PlayerName,
		&r.Score,
		&r.QuestionCount,
		&r.CorrectCount,
		&r.ElapsedSeconds,
		&r.TimeLimitSeconds,
		&r.CreatedAt,
	)
	return r, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a search string into an ILIKE pattern matching it literally.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
