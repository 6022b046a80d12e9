package posts

import "errors"

var (
	// ErrUnsupportedKind is returned when a create carries an unknown discriminant
	ErrUnsupportedKind = errors.New("unsupported post kind")
	// ErrPermissionDenied is returned when the actor does not own the document
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidInput is returned when a write fails structural validation
	ErrInvalidInput = errors.New("invalid input")
)
