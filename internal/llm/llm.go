package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"statement-backend/internal/statement"
)

// Client abstracts AI providers for statement insight generation. It is the
// single seam with unbounded-latency network I/O; implementations make one
// attempt per call, so retry or backoff policies wrap a Client without
// touching the extraction or ratio stages.
type Client interface {
	Generate(ctx context.Context, input GenerateInput) (Insight, error)
}

// GenerateInput carries the pipeline outputs sent to the model.
type GenerateInput struct {
	Metrics statement.Metrics
	Ratios  statement.Ratios
}

// Insight is the narrative produced by the AI stage, kept together with the
// verbatim prompt for auditability.
type Insight struct {
	Analysis    string    `json:"analysis"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// ServiceError wraps a failure of the external AI backend. Timeout is set
// when the call exceeded its deadline, which callers treat differently from
// a hard error.
type ServiceError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *ServiceError) Error() string {
	kind := "unavailable"
	if e.Timeout {
		kind = "timeout"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: ai service %s", e.Op, kind)
	}
	return fmt.Sprintf("%s: ai service %s: %v", e.Op, kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("ai service not configured")

// PlaceholderClient is the stub used when no API credential is present.
type PlaceholderClient struct{}

// Generate returns ErrNotConfigured wrapped as a service error.
func (PlaceholderClient) Generate(ctx context.Context, input GenerateInput) (Insight, error) {
	_ = ctx
	_ = input
	return Insight{}, &ServiceError{Op: "llm.placeholder", Err: ErrNotConfigured}
}
