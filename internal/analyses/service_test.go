package analyses

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"statement-backend/internal/llm"
	"statement-backend/internal/shared/storage/object/local"
	"statement-backend/internal/statement"
)

const statementText = `Total Revenue $1,000,000
Cost of Sales $600,000
Net Income $100,000
Total Assets $2,000,000
`

type staticLLM struct {
	insight llm.Insight
	err     error
}

func (s staticLLM) Generate(ctx context.Context, input llm.GenerateInput) (llm.Insight, error) {
	_ = ctx
	_ = input
	if s.err != nil {
		return llm.Insight{}, s.err
	}
	return s.insight, nil
}

func newTestService(t *testing.T, client llm.Client) (*Service, *MemoryRepo, string) {
	t.Helper()
	dir := t.TempDir()
	repo := NewMemoryRepo()
	svc := &Service{
		Repo:   repo,
		Store:  local.New(dir),
		LLM:    client,
		Runner: NewRunner(2),
	}
	return svc, repo, dir
}

func waitTerminal(t *testing.T, repo *MemoryRepo, id string) Analysis {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		a, err := repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get analysis: %v", err)
		}
		if a.Terminal() {
			return a
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("analysis did not reach a terminal state")
	return Analysis{}
}

func TestSubmitUploadFullPipeline(t *testing.T) {
	client := staticLLM{insight: llm.Insight{Analysis: "strong margins", Model: "test-model"}}
	svc, repo, dir := newTestService(t, client)

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeFull)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}
	if analysis.Status != StatusQueued {
		t.Errorf("initial status: got %s want %s", analysis.Status, StatusQueued)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("final status: got %s, error %v/%v", got.Status, got.ErrorCode, got.ErrorMessage)
	}
	if v, ok := got.Metrics.Lookup(statement.MetricTotalRevenue); !ok || v != 1000000 {
		t.Errorf("total_revenue: got %v found=%v", v, ok)
	}
	if r, ok := got.Ratios[statement.RatioNetMargin]; !ok || !r.Defined || r.Value != 0.1 {
		t.Errorf("net_margin: got %+v", r)
	}
	if got.Insight == nil || got.Insight.Analysis != "strong margins" {
		t.Errorf("insight: got %+v", got.Insight)
	}
	if got.TextLength != len(statementText) {
		t.Errorf("text length: got %d want %d", got.TextLength, len(statementText))
	}

	// The staged upload is released once the run completes.
	svc.Runner.Wait()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staged files left after completion: %d", len(entries))
	}
}

func TestSubmitUploadMetricsOnly(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{err: errors.New("should not be called")})

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeMetrics)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("final status: got %s", got.Status)
	}
	if got.Metrics == nil {
		t.Error("metrics missing")
	}
	if got.Ratios != nil {
		t.Errorf("ratios computed for metrics-only run: %+v", got.Ratios)
	}
	if got.Insight != nil {
		t.Errorf("insight generated for metrics-only run: %+v", got.Insight)
	}
}

func TestSubmitUploadRatiosSkipsInsight(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{err: errors.New("should not be called")})

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeRatios)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("final status: got %s", got.Status)
	}
	if got.Ratios == nil {
		t.Error("ratios missing")
	}
	if got.Insight != nil {
		t.Errorf("insight generated for ratios run: %+v", got.Insight)
	}
}

func TestSubmitUploadLLMFailurePreservesResults(t *testing.T) {
	client := staticLLM{err: &llm.ServiceError{Op: "gemini.generate", Err: errors.New("backend down")}}
	svc, repo, dir := newTestService(t, client)

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeFull)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.Status != StatusFailed {
		t.Fatalf("final status: got %s want %s", got.Status, StatusFailed)
	}
	if got.ErrorCode == nil || *got.ErrorCode != ErrorCodeLLMFailure {
		t.Errorf("error code: got %v want %s", got.ErrorCode, ErrorCodeLLMFailure)
	}
	// Stage results before the failing stage stay on the record.
	if got.Metrics == nil || got.Ratios == nil {
		t.Error("earlier stage results dropped on failure")
	}
	if got.Insight != nil {
		t.Errorf("insight present on failed run: %+v", got.Insight)
	}

	svc.Runner.Wait()
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("staged files left after failure: %d", len(entries))
	}
}

func TestSubmitUploadLLMTimeout(t *testing.T) {
	client := staticLLM{err: &llm.ServiceError{Op: "gemini.generate", Timeout: true, Err: context.DeadlineExceeded}}
	svc, repo, _ := newTestService(t, client)

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeFull)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.ErrorCode == nil || *got.ErrorCode != ErrorCodeLLMTimeout {
		t.Errorf("error code: got %v want %s", got.ErrorCode, ErrorCodeLLMTimeout)
	}
}

func TestSubmitUploadInvalidType(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{})

	_, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), "everything")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	// Rejected submissions leave no record behind.
	counts, _ := repo.CountByStatus(context.Background())
	if len(counts) != 0 {
		t.Errorf("records after rejected submit: %v", counts)
	}
}

func TestSubmitUploadUnsupportedExtension(t *testing.T) {
	svc, _, dir := newTestService(t, staticLLM{})

	_, err := svc.SubmitUpload(context.Background(), "statement.docx", strings.NewReader("data"), TypeFull)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("staged files after rejected submit: %d", len(entries))
	}
}

func TestSubmitUploadEmptyDocument(t *testing.T) {
	svc, _, dir := newTestService(t, staticLLM{})

	_, err := svc.SubmitUpload(context.Background(), "statement.txt", bytes.NewReader(nil), TypeFull)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("staged files after empty upload: %d", len(entries))
	}
}

func TestSubmitPath(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{insight: llm.Insight{Analysis: "ok"}})

	path := filepath.Join(t.TempDir(), "statement.txt")
	if err := os.WriteFile(path, []byte(statementText), 0o644); err != nil {
		t.Fatalf("write statement: %v", err)
	}

	analysis, err := svc.SubmitPath(context.Background(), path, TypeFull)
	if err != nil {
		t.Fatalf("submit path: %v", err)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("final status: got %s", got.Status)
	}

	// The caller keeps ownership of the source file.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("source file removed: %v", err)
	}
}

func TestSubmitPathMissingFile(t *testing.T) {
	svc, _, _ := newTestService(t, staticLLM{})

	_, err := svc.SubmitPath(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), TypeFull)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestSubmitPathCorruptDocumentFails(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{})

	path := filepath.Join(t.TempDir(), "statement.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	analysis, err := svc.SubmitPath(context.Background(), path, TypeFull)
	if err != nil {
		t.Fatalf("submit path: %v", err)
	}

	got := waitTerminal(t, repo, analysis.ID)
	if got.Status != StatusFailed {
		t.Fatalf("final status: got %s", got.Status)
	}
	if got.ErrorCode == nil || *got.ErrorCode != ErrorCodeDocument {
		t.Errorf("error code: got %v want %s", got.ErrorCode, ErrorCodeDocument)
	}
}

func TestCleanup(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{insight: llm.Insight{Analysis: "ok"}})

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeMetrics)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}
	waitTerminal(t, repo, analysis.ID)

	if err := svc.Cleanup(context.Background(), analysis.ID); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), analysis.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still present after cleanup: %v", err)
	}

	// Idempotent for absent ids.
	if err := svc.Cleanup(context.Background(), analysis.ID); err != nil {
		t.Errorf("repeat cleanup: %v", err)
	}
}

func TestCleanupAll(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{insight: llm.Insight{Analysis: "ok"}})

	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeMetrics); err != nil {
			t.Fatalf("submit upload: %v", err)
		}
	}
	svc.Runner.Wait()

	if err := svc.CleanupAll(context.Background()); err != nil {
		t.Fatalf("cleanup all: %v", err)
	}
	counts, _ := repo.CountByStatus(context.Background())
	if len(counts) != 0 {
		t.Errorf("records after cleanup all: %v", counts)
	}
}

func TestQueueSnapshot(t *testing.T) {
	svc, repo, _ := newTestService(t, staticLLM{insight: llm.Insight{Analysis: "ok"}})

	analysis, err := svc.SubmitUpload(context.Background(), "statement.txt", strings.NewReader(statementText), TypeMetrics)
	if err != nil {
		t.Fatalf("submit upload: %v", err)
	}
	waitTerminal(t, repo, analysis.ID)
	svc.Runner.Wait()

	snapshot, err := svc.Queue(context.Background())
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if snapshot.TotalRequests != 1 {
		t.Errorf("total requests: got %d want 1", snapshot.TotalRequests)
	}
	if snapshot.Completed != 1 {
		t.Errorf("completed: got %d want 1", snapshot.Completed)
	}
	if len(snapshot.Requests) != 0 {
		t.Errorf("active requests: got %d want 0", len(snapshot.Requests))
	}
	if snapshot.InFlight != 0 {
		t.Errorf("in flight: got %d want 0", snapshot.InFlight)
	}
}

func TestGetValidation(t *testing.T) {
	svc, _, _ := newTestService(t, staticLLM{})

	if _, err := svc.Get(context.Background(), ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty id: got %v", err)
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: got %v", err)
	}
}
