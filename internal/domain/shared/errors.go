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
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists        = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict  = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrValidation           = NewDomainError("VALIDATION_ERROR", "Business rule violation")
	ErrInsufficientCapacity = NewDomainError("INSUFFICIENT_CAPACITY", "Allocation does not have enough remaining capacity")
	ErrReservationNotActive = NewDomainError("RESERVATION_NOT_ACTIVE", "Reservation is not in active status")
	ErrTransferNotPending   = NewDomainError("TRANSFER_NOT_PENDING", "Transfer is not in pending status")
	ErrInvalidTransition    = NewDomainError("INVALID_TRANSITION", "Lifecycle transition not allowed from current state")
	ErrSignatureInvalid     = NewDomainError("SIGNATURE_INVALID", "Request signature verification failed")
	ErrTimestampExpired     = NewDomainError("TIMESTAMP_EXPIRED", "Request timestamp outside the accepted window")
)
