package analyses

import (
	"context"
	"time"

	"statement-backend/internal/llm"
	"statement-backend/internal/statement"
)

// Repo defines storage operations for analysis records. Implementations
// serialize mutations per record: concurrent readers observe either the
// pre- or post-mutation value, never a torn intermediate.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)

	// SetProcessing moves queued → processing; any other starting state
	// fails with ErrInvalidTransition.
	SetProcessing(ctx context.Context, analysisID string, startedAt time.Time) error

	// Stage results accumulate on the record as the owning run produces
	// them. Setting results on a terminal record fails with
	// ErrInvalidTransition: finished records are immutable.
	SetMetrics(ctx context.Context, analysisID string, textLength int, metrics statement.Metrics) error
	SetRatios(ctx context.Context, analysisID string, ratios statement.Ratios) error
	SetInsight(ctx context.Context, analysisID string, insight llm.Insight) error

	Complete(ctx context.Context, analysisID string, completedAt time.Time) error
	Fail(ctx context.Context, analysisID, code, message string, completedAt time.Time) error

	// Delete removes the record, returning it so the caller can release
	// its staged file. Deleting an absent id reports found=false, not an
	// error.
	Delete(ctx context.Context, analysisID string) (Analysis, bool, error)
	DeleteAll(ctx context.Context) ([]Analysis, error)

	// ListActive returns non-terminal records, newest first.
	ListActive(ctx context.Context) ([]Analysis, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}
