package optimizations

import "context"

// Repo defines persistence for optimization history. The set is deliberately
// append-only: insert, lookup, list and delete, no update.
type Repo interface {
	Create(ctx context.Context, opt Optimization) error
	GetByID(ctx context.Context, id string) (Optimization, error)
	List(ctx context.Context, limit, offset int) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}
