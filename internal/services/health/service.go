package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service reports process liveness and storage reachability.
type Service struct {
	DB *sql.DB
}

// NewService constructs a new health service. A nil db means history is held
// in memory and the process alone determines health.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status returns the health payload.
func (s *Service) Status(ctx context.Context) map[string]any {
	if s.DB == nil {
		return map[string]any{"ok": true, "storage": "memory"}
	}

	out := map[string]any{"ok": true, "storage": "postgres"}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		out["ok"] = false
		out["storage_error"] = err.Error()
	}
	return out
}
