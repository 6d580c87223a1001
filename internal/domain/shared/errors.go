package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrSubmissionInFlight  = NewDomainError("SUBMISSION_IN_FLIGHT", "A submission for this session is already in flight")
	ErrSessionSubmitted    = NewDomainError("SESSION_SUBMITTED", "Session has already been submitted")
	ErrServiceUnavailable  = NewDomainError("SERVICE_UNAVAILABLE", "External service request failed")
	ErrInconsistentRequest = NewDomainError("INCONSISTENT_REQUEST", "Refusing to send an internally inconsistent request")
)
