package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is returned when input shape is rejected.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate is returned when a uniqueness rule would be violated.
	ErrDuplicate = errors.New("duplicate")
	// ErrQuotaExceeded is returned when a configured limit has been reached.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrForbidden is returned when the policy collaborator denies a request.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// FailureReason discriminates why an admission was denied.
type FailureReason string

const (
	FailureValidation    FailureReason = "VALIDATION"
	FailureDuplicate     FailureReason = "DUPLICATE"
	FailureQuotaExceeded FailureReason = "QUOTA_EXCEEDED"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AdmissionFailure is the structured denial returned by the system admin guard.
// It carries the original request so callers can render a precise message.
type AdmissionFailure struct {
	Reason      FailureReason      `json:"reason"`
	Request     SystemAdminRequest `json:"request"`
	FieldErrors []FieldError       `json:"fieldErrors,omitempty"`
}

func (f *AdmissionFailure) Error() string {
	if len(f.FieldErrors) == 0 {
		return fmt.Sprintf("system admin admission denied: %s", f.Reason)
	}
	msgs := make([]string, 0, len(f.FieldErrors))
	for _, fe := range f.FieldErrors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("system admin admission denied: %s (%s)", f.Reason, strings.Join(msgs, "; "))
}

// Unwrap maps the reason onto the matching sentinel so errors.Is works.
func (f *AdmissionFailure) Unwrap() error {
	switch f.Reason {
	case FailureValidation:
		return ErrValidation
	case FailureDuplicate:
		return ErrDuplicate
	case FailureQuotaExceeded:
		return ErrQuotaExceeded
	default:
		return nil
	}
}
