package optimizations

import "time"

// Optimization is one persisted optimization run. Records are append-only:
// created exactly once by a fully successful pipeline run, never mutated,
// removed only by an explicit delete.
type Optimization struct {
	ID                string
	JobURL            string
	JobPostingContent string
	ResumeSourceText  string
	OptimizedResume   string
	Suggestions       []string
	MatchScore        float64
	CreatedAt         time.Time
}

// Summary is the listing projection of an Optimization.
type Summary struct {
	ID         string
	JobURL     string
	MatchScore float64
	CreatedAt  time.Time
}
