package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"statement-backend/internal/extract"
	"statement-backend/internal/llm"
	"statement-backend/internal/shared/metrics"
	"statement-backend/internal/shared/storage/object"
	"statement-backend/internal/shared/telemetry"
	"statement-backend/internal/statement"
)

// Service owns the analysis lifecycle: submission validation, background
// pipeline execution, result reads, and cleanup.
type Service struct {
	Repo   Repo
	Store  object.Store
	LLM    llm.Client
	Runner *Runner
}

// QueueSnapshot summarizes the job store for observability.
type QueueSnapshot struct {
	TotalRequests int        `json:"totalRequests"`
	Queued        int        `json:"queued"`
	Processing    int        `json:"processing"`
	Completed     int        `json:"completed"`
	Failed        int        `json:"failed"`
	InFlight      int        `json:"inFlight"`
	Requests      []Analysis `json:"requests"`
}

// SubmitUpload stages an uploaded statement and enqueues its analysis. The
// record owns the staged file until cleanup or terminal failure.
func (s *Service) SubmitUpload(ctx context.Context, fileName string, r io.Reader, analysisType string) (Analysis, error) {
	if !ValidType(analysisType) {
		return Analysis{}, fmt.Errorf("%w: analysis type %q", ErrInvalidArgument, analysisType)
	}
	if !extract.Supported(fileName) {
		return Analysis{}, fmt.Errorf("%w: unsupported document %q", ErrInvalidArgument, fileName)
	}

	key, size, err := s.Store.Save(ctx, fileName, r)
	if err != nil {
		return Analysis{}, fmt.Errorf("stage upload: %w", err)
	}
	if size == 0 {
		_ = s.Store.Delete(ctx, key)
		return Analysis{}, fmt.Errorf("%w: empty document", ErrInvalidArgument)
	}

	return s.enqueue(ctx, Analysis{
		ID:           uuid.NewString(),
		AnalysisType: analysisType,
		Status:       StatusQueued,
		FileKey:      key,
		FileName:     fileName,
	})
}

// SubmitPath enqueues analysis of an existing file on disk. The caller
// keeps ownership of the file.
func (s *Service) SubmitPath(ctx context.Context, path, analysisType string) (Analysis, error) {
	if !ValidType(analysisType) {
		return Analysis{}, fmt.Errorf("%w: analysis type %q", ErrInvalidArgument, analysisType)
	}
	if strings.TrimSpace(path) == "" {
		return Analysis{}, fmt.Errorf("%w: file path is required", ErrInvalidArgument)
	}
	if !extract.Supported(path) {
		return Analysis{}, fmt.Errorf("%w: unsupported document %q", ErrInvalidArgument, path)
	}
	if _, err := os.Stat(path); err != nil {
		return Analysis{}, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	return s.enqueue(ctx, Analysis{
		ID:           uuid.NewString(),
		AnalysisType: analysisType,
		Status:       StatusQueued,
		SourcePath:   path,
	})
}

func (s *Service) enqueue(ctx context.Context, analysis Analysis) (Analysis, error) {
	now := time.Now().UTC()
	analysis.CreatedAt = now
	analysis.UpdatedAt = now

	if err := s.Repo.Create(ctx, analysis); err != nil {
		s.releaseFile(analysis)
		return Analysis{}, err
	}

	runCtx := backgroundWithRequestID(ctx)
	s.schedule(func() { s.process(runCtx, analysis.ID) })

	return analysis, nil
}

func (s *Service) schedule(task func()) {
	if s.Runner != nil {
		s.Runner.Go(task)
		return
	}
	go task()
}

// Get returns an analysis record by ID.
func (s *Service) Get(ctx context.Context, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, fmt.Errorf("%w: analysis id is required", ErrInvalidArgument)
	}
	return s.Repo.GetByID(ctx, analysisID)
}

// Queue returns the current job store snapshot with in-flight records
// newest first.
func (s *Service) Queue(ctx context.Context) (QueueSnapshot, error) {
	counts, err := s.Repo.CountByStatus(ctx)
	if err != nil {
		return QueueSnapshot{}, err
	}
	active, err := s.Repo.ListActive(ctx)
	if err != nil {
		return QueueSnapshot{}, err
	}

	snapshot := QueueSnapshot{
		Queued:     counts[StatusQueued],
		Processing: counts[StatusProcessing],
		Completed:  counts[StatusCompleted],
		Failed:     counts[StatusFailed],
		Requests:   active,
	}
	for _, n := range counts {
		snapshot.TotalRequests += n
	}
	if s.Runner != nil {
		snapshot.InFlight = s.Runner.InFlight()
	}
	return snapshot, nil
}

// Cleanup removes a record and releases its staged file. Cleaning an
// already-absent id is a no-op.
func (s *Service) Cleanup(ctx context.Context, analysisID string) error {
	analysis, found, err := s.Repo.Delete(ctx, analysisID)
	if err != nil {
		return err
	}
	if found {
		s.releaseFile(analysis)
	}
	return nil
}

// CleanupAll removes every record and its staged files.
func (s *Service) CleanupAll(ctx context.Context) error {
	removed, err := s.Repo.DeleteAll(ctx)
	if err != nil {
		return err
	}
	for _, analysis := range removed {
		s.releaseFile(analysis)
	}
	return nil
}

// process runs the pipeline stages selected by the record's analysis type.
// A stage failure terminates only this run; results from earlier stages
// stay on the record.
func (s *Service) process(ctx context.Context, analysisID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failAnalysis(ctx, analysisID, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.SetProcessing(ctx, analysisID, startedAt); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set processing failed: %w", err), &startedAt)
		return
	}

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("analysis lookup: %w", err), &startedAt)
		return
	}

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"analysis_type":     analysis.AnalysisType,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	text, err := s.loadText(ctx, analysis)
	if err != nil {
		s.failAnalysis(ctx, analysisID, err, &startedAt)
		return
	}

	extracted := statement.Extract(text)
	if err := s.Repo.SetMetrics(ctx, analysisID, len(text), extracted); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set metrics failed: %w", err), &startedAt)
		return
	}

	var ratios statement.Ratios
	if analysis.AnalysisType != TypeMetrics {
		ratios = statement.CalculateRatios(extracted)
		if err := s.Repo.SetRatios(ctx, analysisID, ratios); err != nil {
			s.failAnalysis(ctx, analysisID, fmt.Errorf("set ratios failed: %w", err), &startedAt)
			return
		}
	}

	if analysis.AnalysisType == TypeFull {
		if s.LLM == nil {
			s.failAnalysis(ctx, analysisID, errors.New("missing llm client"), &startedAt)
			return
		}
		insight, err := s.LLM.Generate(ctx, llm.GenerateInput{Metrics: extracted, Ratios: ratios})
		if err != nil {
			s.failAnalysis(ctx, analysisID, fmt.Errorf("generate insight: %w", err), &startedAt)
			return
		}
		if err := s.Repo.SetInsight(ctx, analysisID, insight); err != nil {
			s.failAnalysis(ctx, analysisID, fmt.Errorf("set insight failed: %w", err), &startedAt)
			return
		}
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, analysisID, completedAt); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set completed failed: %w", err), &startedAt)
		return
	}
	s.releaseFile(analysis)

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"analysis_type":     analysis.AnalysisType,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"metrics_found":     extracted.FoundCount(),
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

func (s *Service) loadText(ctx context.Context, analysis Analysis) (string, error) {
	if analysis.FileKey != "" {
		body, err := s.Store.Open(ctx, analysis.FileKey)
		if err != nil {
			return "", fmt.Errorf("open staged document: %w", err)
		}
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read staged document: %w", err)
		}
		return extract.FromBytes(data, analysis.FileName)
	}
	return extract.FromFile(analysis.SourcePath)
}

func (s *Service) failAnalysis(ctx context.Context, analysisID string, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.Fail(context.Background(), analysisID, code, msg, completedAt); updateErr != nil && !errors.Is(updateErr, ErrInvalidTransition) {
		telemetry.Error("analysis.fail_update", map[string]any{
			"analysis_id": analysisID,
			"error":       updateErr.Error(),
			"cause":       msg,
		})
	}
	if analysis, getErr := s.Repo.GetByID(context.Background(), analysisID); getErr == nil {
		s.releaseFile(analysis)
	}

	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"error":             msg,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

// releaseFile deletes the staged document owned by the record, if any.
func (s *Service) releaseFile(analysis Analysis) {
	if analysis.FileKey == "" || s.Store == nil {
		return
	}
	if err := s.Store.Delete(context.Background(), analysis.FileKey); err != nil {
		telemetry.Error("analysis.release_file", map[string]any{
			"analysis_id": analysis.ID,
			"file_key":    analysis.FileKey,
			"error":       err.Error(),
		})
	}
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	var svcErr *llm.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Timeout {
			return ErrorCodeLLMTimeout
		}
		return ErrorCodeLLMFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "extract text"), strings.Contains(msg, "read pdf"),
		strings.Contains(msg, "read xlsx"), strings.Contains(msg, "read csv"),
		strings.Contains(msg, "document"):
		return ErrorCodeDocument
	case strings.Contains(msg, "set "), strings.Contains(msg, "lookup"), strings.Contains(msg, "stage"):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
