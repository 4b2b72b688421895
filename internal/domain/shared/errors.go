package shared

// DomainError is an error with a stable machine-readable code alongside
// the human-readable message
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a domain error with the given code and message
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrConsistency signals that a persisted record came back without data
// an invariant guarantees it should have
var ErrConsistency = NewDomainError("CONSISTENCY", "persisted record is missing required data")
