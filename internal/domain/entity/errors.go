package entity

import "errors"

// ErrorKind classifies domain failures so the transport layer can map them
// to status codes without string matching. NotFound and Forbidden are kept
// distinct on purpose: a tenant mismatch is not the same as a missing row.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindNotFound
	ErrKindForbidden
	ErrKindInvalidState
	ErrKindValidation
	ErrKindDecode
)

// DomainError carries a user-facing German message plus enough context
// (1-based position, where applicable) that the caller can fix the input.
type DomainError struct {
	Kind    ErrorKind
	Message string
	// Position is the 1-based line position the error refers to, 0 when the
	// error is not position specific.
	Position int
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewNotFound builds a NotFound error.
func NewNotFound(msg string) *DomainError {
	return &DomainError{Kind: ErrKindNotFound, Message: msg}
}

// NewForbidden builds a Forbidden error.
func NewForbidden(msg string) *DomainError {
	return &DomainError{Kind: ErrKindForbidden, Message: msg}
}

// NewInvalidState builds an InvalidState error.
func NewInvalidState(msg string) *DomainError {
	return &DomainError{Kind: ErrKindInvalidState, Message: msg}
}

// NewValidation builds a Validation error without position context.
func NewValidation(msg string) *DomainError {
	return &DomainError{Kind: ErrKindValidation, Message: msg}
}

// NewPositionValidation builds a Validation error for one line position.
func NewPositionValidation(position int, msg string) *DomainError {
	return &DomainError{Kind: ErrKindValidation, Message: msg, Position: position}
}

// NewDecode builds a Decode error for shapefile ingestion failures.
func NewDecode(msg string) *DomainError {
	return &DomainError{Kind: ErrKindDecode, Message: msg}
}

// KindOf extracts the error kind from an error chain.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrKindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
