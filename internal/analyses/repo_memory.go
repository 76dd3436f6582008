package analyses

import (
	"context"
	"sort"
	"sync"
	"time"

	"statement-backend/internal/llm"
	"statement-backend/internal/statement"
)

// MemoryRepo stores analysis records in memory and is safe for concurrent
// use. It is the contractual baseline store: records live only for the
// lifetime of the process.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis record.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[analysis.ID] = analysis
	return nil
}

// GetByID returns an analysis record by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// SetProcessing moves the record from queued to processing.
func (r *MemoryRepo) SetProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusQueued {
			return ErrInvalidTransition
		}
		a.Status = StatusProcessing
		a.StartedAt = &startedAt
		return nil
	})
}

// SetMetrics records the extraction stage output.
func (r *MemoryRepo) SetMetrics(ctx context.Context, analysisID string, textLength int, metrics statement.Metrics) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) error {
		if a.Terminal() {
			return ErrInvalidTransition
		}
		a.TextLength = textLength
		a.Metrics = metrics
		return nil
	})
}

// SetRatios records the ratio stage output.
func (r *MemoryRepo) SetRatios(ctx context.Context, analysisID string, ratios statement.Ratios) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) error {
		if a.Terminal() {
			return ErrInvalidTransition
		}
		a.Ratios = ratios
		return nil
	})
}

// SetInsight records the AI stage output.
func (r *MemoryRepo) SetInsight(ctx context.Context, analysisID string, insight llm.Insight) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) error {
		if a.Terminal() {
			return ErrInvalidTransition
		}
		a.Insight = &insight
		return nil
	})
}

// Complete moves the record from processing to completed.
func (r *MemoryRepo) Complete(ctx context.Context, analysisID string, completedAt time.Time) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusProcessing {
			return ErrInvalidTransition
		}
		a.Status = StatusCompleted
		a.CompletedAt = &completedAt
		return nil
	})
}

// Fail moves the record to failed and records the error detail. A record
// may fail from queued (scheduling fault) or processing, never from a
// terminal state.
func (r *MemoryRepo) Fail(ctx context.Context, analysisID, code, message string, completedAt time.Time) error {
	return r.mutate(ctx, analysisID, func(a *Analysis) error {
		if a.Terminal() {
			return ErrInvalidTransition
		}
		a.Status = StatusFailed
		a.ErrorCode = &code
		a.ErrorMessage = &message
		a.CompletedAt = &completedAt
		return nil
	})
}

// Delete removes the record and returns it for staged-file release.
func (r *MemoryRepo) Delete(ctx context.Context, analysisID string) (Analysis, bool, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, false, nil
	}
	delete(r.byID, analysisID)
	return analysis, true, nil
}

// DeleteAll removes every record and returns the removed set.
func (r *MemoryRepo) DeleteAll(ctx context.Context) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make([]Analysis, 0, len(r.byID))
	for _, a := range r.byID {
		removed = append(removed, a)
	}
	r.byID = make(map[string]Analysis)
	return removed, nil
}

// ListActive returns non-terminal records, newest first.
func (r *MemoryRepo) ListActive(ctx context.Context) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	active := make([]Analysis, 0)
	for _, a := range r.byID {
		if !a.Terminal() {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}

// CountByStatus returns record counts keyed by lifecycle state.
func (r *MemoryRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int, 4)
	for _, a := range r.byID {
		counts[a.Status]++
	}
	return counts, nil
}

func (r *MemoryRepo) mutate(ctx context.Context, analysisID string, apply func(*Analysis) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	if err := apply(&analysis); err != nil {
		return err
	}
	analysis.UpdatedAt = time.Now().UTC()
	r.byID[analysisID] = analysis
	return nil
}
