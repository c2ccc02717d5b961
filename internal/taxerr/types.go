package taxerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the categories of failures the filing pipeline reports
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeUnrecognizedDocumentType
	ErrorTypeFieldExtractionWarning
	ErrorTypeInvalidFilerProfile
	ErrorTypeUnsupportedFieldMapping
	ErrorTypeTemplateLoad
)

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnrecognizedDocumentType:
		return "UNRECOGNIZED_DOCUMENT_TYPE"
	case ErrorTypeFieldExtractionWarning:
		return "FIELD_EXTRACTION_WARNING"
	case ErrorTypeInvalidFilerProfile:
		return "INVALID_FILER_PROFILE"
	case ErrorTypeUnsupportedFieldMapping:
		return "UNSUPPORTED_FIELD_MAPPING"
	case ErrorTypeTemplateLoad:
		return "TEMPLATE_LOAD_ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsFatal reports whether the error aborts the operation that raised it.
// Field extraction warnings degrade confidence but never abort.
func (et ErrorType) IsFatal() bool {
	return et != ErrorTypeFieldExtractionWarning
}

// IsConfiguration reports whether the error indicates a defect in static
// configuration rather than bad input.
func (et ErrorType) IsConfiguration() bool {
	return et == ErrorTypeUnsupportedFieldMapping
}

// Error is the typed error returned by the extraction, computation and rendering stages
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Context    string    `json:"context,omitempty"`
	Violations []string  `json:"violations,omitempty"`
	Err        error     `json:"-"`
}

// Sentinels for errors.Is comparisons. Matching is by type only.
var (
	ErrUnrecognizedDocumentType = &Error{Type: ErrorTypeUnrecognizedDocumentType, Message: "unrecognized document type"}
	ErrInvalidFilerProfile      = &Error{Type: ErrorTypeInvalidFilerProfile, Message: "invalid filer profile"}
	ErrUnsupportedFieldMapping  = &Error{Type: ErrorTypeUnsupportedFieldMapping, Message: "unsupported field mapping"}
	ErrTemplateLoad             = &Error{Type: ErrorTypeTemplateLoad, Message: "template load error"}
)

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type.String(), e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, ": %s", e.Context)
	}
	if len(e.Violations) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Violations, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same type
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// New creates a new typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewWithContext creates a new typed error with additional context
func NewWithContext(errorType ErrorType, message, context string) *Error {
	return &Error{Type: errorType, Message: message, Context: context}
}

// Wrap attaches a type and message to an underlying cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// WithViolations returns a copy of the error listing the individual violations
func (e *Error) WithViolations(violations ...string) *Error {
	cp := *e
	cp.Violations = append(append([]string(nil), e.Violations...), violations...)
	return &cp
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// FieldExtractionWarning is a non-fatal issue attached to an extracted
// document. It is carried as data and never returned as an error.
type FieldExtractionWarning struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String renders the warning for display
func (w FieldExtractionWarning) String() string {
	if w.Field == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// Type returns ErrorTypeFieldExtractionWarning
func (w FieldExtractionWarning) Type() ErrorType {
	return ErrorTypeFieldExtractionWarning
}
