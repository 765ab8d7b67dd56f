package optimizations

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

func sampleOptimization(id string, createdAt time.Time) Optimization {
	return Optimization{
		ID:                id,
		JobURL:            "https://jobs.example.com/" + id,
		JobPostingContent: "posting",
		ResumeSourceText:  "resume",
		OptimizedResume:   "optimized",
		Suggestions:       []string{"first", "second"},
		MatchScore:        0.45,
		CreatedAt:         createdAt,
	}
}

func TestMemoryRepoSaveThenGetIsStable(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	saved := sampleOptimization("keep", now)
	if err := repo.Create(ctx, saved); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Unrelated churn on other ids must not disturb the stored record.
	for i := 0; i < 5; i++ {
		other := sampleOptimization(fmt.Sprintf("other-%d", i), now.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, other); err != nil {
			t.Fatalf("Create other: %v", err)
		}
		if err := repo.Delete(ctx, other.ID); err != nil {
			t.Fatalf("Delete other: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, "keep")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reflect.DeepEqual(got, saved) {
		t.Fatalf("stored record changed: got %+v want %+v", got, saved)
	}
}

func TestMemoryRepoDeleteThenGet(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, sampleOptimization("gone", time.Now().UTC())); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID after delete = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		opt := sampleOptimization(fmt.Sprintf("id-%d", i), base.Add(time.Duration(i)*time.Hour))
		if err := repo.Create(ctx, opt); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.List(ctx, 3, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, wantID := range []string{"id-4", "id-3", "id-2"} {
		if got[i].ID != wantID {
			t.Fatalf("got[%d].ID = %s, want %s", i, got[i].ID, wantID)
		}
	}

	page, err := repo.List(ctx, 3, 3)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page) != 2 || page[0].ID != "id-1" || page[1].ID != "id-0" {
		t.Fatalf("unexpected second page: %#v", page)
	}

	empty, err := repo.List(ctx, 3, 100)
	if err != nil {
		t.Fatalf("List past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %#v", empty)
	}
}

func TestMemoryRepoConcurrentAccess(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			_ = repo.Create(ctx, sampleOptimization(id, time.Now().UTC()))
			_, _ = repo.GetByID(ctx, id)
			_, _ = repo.List(ctx, 10, 0)
			if i%2 == 0 {
				_ = repo.Delete(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	got, err := repo.List(ctx, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 surviving records, got %d", len(got))
	}
}
