package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"statement-backend/internal/shared/server/middleware"
	"statement-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	polls          *pollLimiter
}

// NewHandler constructs a Handler. pollWindow throttles per-id status
// polling; zero uses the default window.
func NewHandler(svc *Service, maxUploadBytes int64, pollWindow time.Duration) *Handler {
	return &Handler{
		Svc:            svc,
		MaxUploadBytes: maxUploadBytes,
		polls:          newPollLimiter(pollWindow, nil),
	}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses/upload", h.submitUpload)
	rg.POST("/analyses/file", h.submitFile)
	rg.GET("/analyses/:id/status", h.status)
	rg.GET("/analyses/:id", h.result)
	rg.DELETE("/analyses/:id", h.cleanup)
	rg.DELETE("/analyses", h.cleanupAll)
	rg.GET("/queue", h.queue)
}

func (h *Handler) submitUpload(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	analysisType := strings.TrimSpace(c.PostForm("analysisType"))
	if analysisType == "" {
		analysisType = TypeFull
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	analysis, err := h.Svc.SubmitUpload(ctx, fileHeader.Filename, file, analysisType)
	if err != nil {
		h.submitError(c, err)
		return
	}
	c.Set("analysisId", analysis.ID)

	respond.JSON(c, http.StatusAccepted, gin.H{
		"requestId": analysis.ID,
		"status":    analysis.Status,
		"createdAt": analysis.CreatedAt,
	})
}

type submitFileRequest struct {
	FilePath     string `json:"filePath"`
	AnalysisType string `json:"analysisType"`
}

func (h *Handler) submitFile(c *gin.Context) {
	var req submitFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.AnalysisType == "" {
		req.AnalysisType = TypeFull
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	analysis, err := h.Svc.SubmitPath(ctx, strings.TrimSpace(req.FilePath), req.AnalysisType)
	if err != nil {
		h.submitError(c, err)
		return
	}
	c.Set("analysisId", analysis.ID)

	respond.JSON(c, http.StatusAccepted, gin.H{
		"requestId": analysis.ID,
		"status":    analysis.Status,
		"createdAt": analysis.CreatedAt,
	})
}

func (h *Handler) submitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrSourceNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
	}
}

func (h *Handler) status(c *gin.Context) {
	analysisID := c.Param("id")

	if !h.polls.Allow(analysisID) {
		c.Header("Retry-After", strconv.Itoa(h.polls.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "poll_limited", "status polled too frequently", nil)
		return
	}

	analysis, err := h.Svc.Get(c.Request.Context(), analysisID)
	if err != nil {
		h.lookupError(c, err)
		return
	}

	resp := gin.H{
		"requestId": analysis.ID,
		"status":    analysis.Status,
		"createdAt": analysis.CreatedAt,
		"updatedAt": analysis.UpdatedAt,
	}
	if analysis.StartedAt != nil {
		resp["startedAt"] = analysis.StartedAt
	}
	if analysis.CompletedAt != nil {
		resp["completedAt"] = analysis.CompletedAt
	}
	respond.JSON(c, http.StatusOK, resp)
}

// result returns the full record in its current state; it never blocks on
// an unfinished run.
func (h *Handler) result(c *gin.Context) {
	analysis, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, analysis)
}

func (h *Handler) cleanup(c *gin.Context) {
	analysisID := c.Param("id")
	if err := h.Svc.Cleanup(c.Request.Context(), analysisID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clean up analysis", nil)
		return
	}
	h.polls.Forget(analysisID)
	respond.JSON(c, http.StatusOK, gin.H{"message": "cleaned up analysis " + analysisID})
}

func (h *Handler) cleanupAll(c *gin.Context) {
	if err := h.Svc.CleanupAll(c.Request.Context()); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clean up analyses", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"message": "cleaned up all analyses"})
}

func (h *Handler) queue(c *gin.Context) {
	snapshot, err := h.Svc.Queue(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read queue", nil)
		return
	}
	respond.JSON(c, http.StatusOK, snapshot)
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, ErrInvalidArgument):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
	}
}
