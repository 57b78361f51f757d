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

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeConfiguration   = "CONFIGURATION_ERROR"
	ErrCodeTransientRemote = "TRANSIENT_REMOTE_ERROR"
	ErrCodeRemoteAPI       = "REMOTE_API_ERROR"
	ErrCodeNetwork         = "NETWORK_ERROR"
	ErrCodeIngestionItem   = "INGESTION_ITEM_ERROR"
	ErrCodePersistence     = "PERSISTENCE_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query text is empty")
	ErrInvalidSourceType = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrEmptyDocument     = NewDomainError(ErrCodeValidation, "document has no text")
)

// Configuration errors (non-fatal: they trigger degraded/demo behavior)
var (
	ErrNoGenerationCredential = NewDomainError(ErrCodeConfiguration, "no generation API credential configured")
	ErrNoEmbeddingCredential  = NewDomainError(ErrCodeConfiguration, "no embedding API credential configured")
)

// Remote errors
var (
	ErrModelWarmingUp = NewDomainError(ErrCodeTransientRemote, "remote model is loading, retry shortly")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// ErrorCode extracts the domain error code from err, or INTERNAL_ERROR when
// err is not a DomainError.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternalError
}
