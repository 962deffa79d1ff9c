package run

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/victornm/timestables/internal/domain"
	"github.com/victornm/timestables/internal/errors"
)

// MemoryRepository keeps runs in process memory. It is used when no database
// is configured, and in tests.
type MemoryRepository struct {
	now func() time.Time

	mu     sync.RWMutex
	runs   []domain.Run
	lastID int64
	last   time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return NewMemoryRepositoryWithClock(time.Now)
}

func NewMemoryRepositoryWithClock(now func() time.Time) *MemoryRepository {
	return &MemoryRepository{now: now}
}

func (m *MemoryRepository) Save(_ context.Context, r domain.Run) (domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// creation times never go backwards, even if the clock does
	now := m.now().UTC()
	if now.Before(m.last) {
		now = m.last
	}
	m.last = now

	m.lastID++
	r.ID = m.lastID
	r.CreatedAt = now
	m.runs = append(m.runs, r)

	return r, nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.find(id)
	if !ok {
		return domain.Run{}, errors.NotFoundf("run %d not found", id)
	}
	return r, nil
}

func (m *MemoryRepository) List(_ context.Context, req ListRequest) (domain.RunPage, error) {
	m.mu.RLock()
	matched := make([]domain.Run, 0, len(m.runs))
	needle := strings.ToLower(req.Search)
	for _, r := range m.runs {
		if strings.Contains(strings.ToLower(r.PlayerName), needle) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Before(matched[j])
	})

	page := domain.RunPage{
		Items:      []domain.Run{},
		Total:      len(matched),
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(len(matched), req.PageSize),
	}

	offset := (req.Page - 1) * req.PageSize
	if req.PageSize <= 0 || offset < 0 || offset >= len(matched) {
		return page, nil
	}
	end := min(offset+req.PageSize, len(matched))
	page.Items = append(page.Items, matched[offset:end]...)

	return page, nil
}

func (m *MemoryRepository) Rank(_ context.Context, id int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target, ok := m.find(id)
	if !ok {
		return 0, errors.NotFoundf("run %d not found", id)
	}

	rank := 0
	for _, r := range m.runs {
		if r.Before(target) {
			rank++
		}
	}
	return rank, nil
}

func (m *MemoryRepository) find(id int64) (domain.Run, bool) {
	// ids are assigned sequentially starting at 1
	if id < 1 || id > int64(len(m.runs)) {
		return domain.Run{}, false
	}
	return m.runs[id-1], true
}
