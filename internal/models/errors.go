package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrSuperseded      = errors.New("superseded by a newer request")

	ErrInvalidKind          = errors.New("invalid document kind")
	ErrInvalidReviewStatus  = errors.New("invalid review status")
	ErrInvalidAppStatus     = errors.New("invalid application status")
	ErrInvalidProfile       = errors.New("invalid profile")
	ErrInvalidBankDetails   = errors.New("invalid bank details")
	ErrEmptyMessage         = errors.New("empty message")
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
)

type ValidationReason string

const (
	ReasonInvalidFormat           ValidationReason = "invalid_format"
	ReasonFileTooLarge            ValidationReason = "file_too_large"
	ReasonContentValidationFailed ValidationReason = "content_validation_failed"
)

// ValidationError is a user-correctable rejection of an uploaded file.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

var (
	ErrInvalidFormat           = &ValidationError{Reason: ReasonInvalidFormat}
	ErrFileTooLarge            = &ValidationError{Reason: ReasonFileTooLarge}
	ErrContentValidationFailed = &ValidationError{Reason: ReasonContentValidationFailed}
)

func NewValidationError(reason ValidationReason, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "validation failed: " + string(e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, e.Detail)
}

// Is matches any ValidationError carrying the same reason.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == e.Reason
}
