package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on code and message, which includes copies made by WithCause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of the error carrying the underlying cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeInternalError           = "INTERNAL_ERROR"
	ErrCodeIngestion               = "INGESTION_ERROR"
	ErrCodeEmptyDocument           = "EMPTY_DOCUMENT"
	ErrCodeEmbeddingService        = "EMBEDDING_SERVICE_ERROR"
	ErrCodeDimensionMismatch       = "DIMENSION_MISMATCH"
	ErrCodeGeneration              = "GENERATION_ERROR"
	ErrCodeStore                   = "STORE_ERROR"
	ErrCodeNoActiveDocument        = "NO_ACTIVE_DOCUMENT"
	ErrCodeConcurrentBuildRejected = "CONCURRENT_BUILD_REJECTED"
	ErrCodeUploadTooLarge          = "UPLOAD_TOO_LARGE"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid index job status")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrUploadTooLarge       = NewDomainError(ErrCodeUploadTooLarge, "upload exceeds the size limit")
)

// Not found errors
var (
	ErrFileNotFound = NewDomainError(ErrCodeNotFound, "file not found")
	ErrJobNotFound  = NewDomainError(ErrCodeNotFound, "index job not found")
)

// Ingestion errors
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeIngestion, "unsupported document format")
	ErrIngestion         = NewDomainError(ErrCodeIngestion, "failed to extract document text")
	ErrEmptyDocument     = NewDomainError(ErrCodeEmptyDocument, "document has no extractable text")
)

// Service errors
var (
	ErrEmbeddingService  = NewDomainError(ErrCodeEmbeddingService, "embedding service call failed")
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "embedding dimension does not match index")
	ErrGeneration        = NewDomainError(ErrCodeGeneration, "answer generation failed")
	ErrStore             = NewDomainError(ErrCodeStore, "file store operation failed")
)

// Session errors
var (
	ErrNoActiveDocument        = NewDomainError(ErrCodeNoActiveDocument, "no document has been processed")
	ErrConcurrentBuildRejected = NewDomainError(ErrCodeConcurrentBuildRejected, "another document is being processed")
)
