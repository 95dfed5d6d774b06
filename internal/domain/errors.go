package domain

import "errors"

var (
	// ErrDefectNotFound is returned when an id matches no known defect.
	ErrDefectNotFound = errors.New("defect not found")
	// ErrInvalidDefect is returned by defect validation.
	ErrInvalidDefect = errors.New("invalid defect")
	// ErrUnknownRole is returned when a role string is not recognised.
	ErrUnknownRole = errors.New("unknown user role")

	// ErrRedactionUnavailable covers transport failures, timeouts and non-2xx
	// responses from the redaction service.
	ErrRedactionUnavailable = errors.New("redaction service unavailable")
	// ErrMalformedResponse is returned when the redaction service answered but
	// the payload lacks a usable redacted_text.
	ErrMalformedResponse = errors.New("malformed redaction response")
)
