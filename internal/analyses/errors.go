package analyses

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrSourceNotFound    = errors.New("source file not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error codes recorded on failed analyses.
const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeDocument   = "DOCUMENT_UNREADABLE"
	ErrorCodeLLMTimeout = "LLM_TIMEOUT"
	ErrorCodeLLMFailure = "LLM_UNAVAILABLE"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
