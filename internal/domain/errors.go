package domain

import (
	"errors"
	"fmt"
	"time"
)

// ValidationReason identifies which local precondition rejected an input.
type ValidationReason string

const (
	ReasonExtension    ValidationReason = "extension"
	ReasonSize         ValidationReason = "size"
	ReasonMissingFile  ValidationReason = "missing_file"
	ReasonMissingDrugs ValidationReason = "missing_drugs"
)

// GenericAnalysisFailure is shown when neither the service nor the transport
// supplied a usable message.
const GenericAnalysisFailure = "Analysis failed. Please try again."

var validationMessages = map[ValidationReason]string{
	ReasonExtension:    "Only .vcf files are allowed.",
	ReasonSize:         "VCF file exceeds 5 MB limit.",
	ReasonMissingFile:  "Please upload a VCF file.",
	ReasonMissingDrugs: "Please add at least one drug name.",
}

// ErrSubmissionInFlight is returned when a submit is attempted while an
// analysis request is outstanding.
var ErrSubmissionInFlight = errors.New("an analysis request is already in flight")

// ValidationError represents a rejected local input. It is recoverable by
// correcting the input and is never sent to the service.
type ValidationError struct {
	Field   string           `json:"field"`
	Reason  ValidationReason `json:"reason"`
	Message string           `json:"message"`
	Value   interface{}      `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with the user-visible
// message for reason.
func NewValidationError(field string, reason ValidationReason, value interface{}) *ValidationError {
	msg, ok := validationMessages[reason]
	if !ok {
		msg = fmt.Sprintf("validation error for field '%s'", field)
	}
	return &ValidationError{
		Field:   field,
		Reason:  reason,
		Message: msg,
		Value:   value,
	}
}

// IsValidationReason reports whether err is a ValidationError with reason.
func IsValidationReason(err error, reason ValidationReason) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Reason == reason
}

// ServiceError is a non-2xx answer from an external service. Detail holds the
// service-provided explanation when the body carried one.
type ServiceError struct {
	Service    string `json:"service"`
	StatusCode int    `json:"status_code"`
	Detail     string `json:"detail,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// ClientSide reports whether the service rejected the request itself.
func (e *ServiceError) ClientSide() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// SubmissionError is a failed analysis call. It ends the current attempt
// only; the form stays usable.
type SubmissionError struct {
	Detail    string    `json:"detail,omitempty"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSubmissionError wraps a transport failure, lifting any service detail.
func NewSubmissionError(err error) *SubmissionError {
	se := &SubmissionError{Err: err, Timestamp: time.Now().UTC()}
	var svc *ServiceError
	if errors.As(err, &svc) {
		se.Detail = svc.Detail
	}
	return se
}

// Message picks the text shown to the user: the service detail, else the
// transport error text, else a generic fallback.
func (e *SubmissionError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	return GenericAnalysisFailure
}

// Error implements the error interface
func (e *SubmissionError) Error() string {
	return e.Message()
}

// Unwrap returns the transport error.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ReportError is a failed report rendering. It never affects submission state.
type ReportError struct {
	Err error
}

// Error implements the error interface
func (e *ReportError) Error() string {
	if e.Err == nil {
		return "failed to generate clinical report"
	}
	return fmt.Sprintf("failed to generate clinical report: %v", e.Err)
}

// Unwrap returns the underlying failure.
func (e *ReportError) Unwrap() error {
	return e.Err
}
