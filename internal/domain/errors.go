package domain

import "fmt"

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

// Is matches another DomainError carrying the same code and message, so
// wrapped instances of a sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeRetrieval        = "RETRIEVAL_FAILURE"
	ErrCodeSynthesis        = "SYNTHESIS_FAILURE"
	ErrCodeCancelled        = "CANCELLED"
)

// Validation errors
var (
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrInvalidElementType   = NewDomainError(ErrCodeValidation, "invalid element type")
	ErrInvalidDrawing       = NewDomainError(ErrCodeValidation, "invalid drawing payload")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeValidation, "invalid chunk configuration")
	ErrIncompleteBundle     = NewDomainError(ErrCodeValidation, "incomplete element bundle")
)

// Not found errors
var (
	ErrChunkNotFound   = NewDomainError(ErrCodeNotFound, "regulatory chunk not found")
	ErrDrawingNotFound = NewDomainError(ErrCodeNotFound, "drawing not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Reasoning failures
var (
	ErrRetrievalFailure = NewDomainError(ErrCodeRetrieval, "regulation retrieval failed")
	ErrSynthesisFailure = NewDomainError(ErrCodeSynthesis, "answer synthesis failed")
	ErrRunCancelled     = NewDomainError(ErrCodeCancelled, "compliance run cancelled")
)

// Storage errors
var (
	ErrParentExists         = NewDomainError(ErrCodeInvalidOperation, "parent already stored")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// NewRetrievalFailure wraps an embedding or index error as a retrieval failure.
func NewRetrievalFailure(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRetrieval, ErrRetrievalFailure.Message, err)
}

// NewSynthesisFailure wraps a generation or parse error as a synthesis failure.
func NewSynthesisFailure(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeSynthesis, ErrSynthesisFailure.Message, err)
}
