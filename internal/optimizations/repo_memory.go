package optimizations

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores optimizations in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Optimization
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Optimization)}
}

// Create stores the optimization.
func (r *MemoryRepo) Create(ctx context.Context, opt Optimization) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[opt.ID] = opt
	return nil
}

// GetByID returns an optimization by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Optimization, error) {
	if err := ctx.Err(); err != nil {
		return Optimization{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	opt, ok := r.byID[id]
	if !ok {
		return Optimization{}, ErrNotFound
	}
	return opt, nil
}

// List returns summaries, newest first, with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	summaries := make([]Summary, 0, len(r.byID))
	for _, opt := range r.byID {
		summaries = append(summaries, Summary{
			ID:         opt.ID,
			JobURL:     opt.JobURL,
			MatchScore: opt.MatchScore,
			CreatedAt:  opt.CreatedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if offset >= len(summaries) {
		return []Summary{}, nil
	}
	end := len(summaries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return summaries[offset:end], nil
}

// Delete removes an optimization by ID.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
