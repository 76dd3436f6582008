package analyses

import (
	"time"

	"statement-backend/internal/llm"
	"statement-backend/internal/statement"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis types select which pipeline stages run for a request.
const (
	TypeMetrics = "metrics"
	TypeRatios  = "ratios"
	TypeFull    = "full"
)

// ValidType reports whether the analysis type is one of the three
// enumerated selectors.
func ValidType(analysisType string) bool {
	switch analysisType {
	case TypeMetrics, TypeRatios, TypeFull:
		return true
	default:
		return false
	}
}

// Analysis is the stored record for one statement analysis request: its
// input reference, lifecycle state, and whichever stage results its type
// and progress have produced.
type Analysis struct {
	ID           string `json:"id"`
	AnalysisType string `json:"analysisType"`
	Status       string `json:"status"`

	// Exactly one of FileKey (staged upload, owned by this record) or
	// SourcePath (caller-supplied existing file) is set.
	FileKey    string `json:"-"`
	SourcePath string `json:"sourcePath,omitempty"`
	FileName   string `json:"fileName,omitempty"`

	TextLength int               `json:"textLength"`
	Metrics    statement.Metrics `json:"metrics,omitempty"`
	Ratios     statement.Ratios  `json:"ratios,omitempty"`
	Insight    *llm.Insight      `json:"insight,omitempty"`

	ErrorCode    *string `json:"errorCode,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether the record has reached a final state.
func (a Analysis) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}
