// Package apperr holds the error conditions shared by the scoring engine.
package apperr

import "errors"

var (
	// ErrInvalidInput reports a caller bug such as a missing profile or job.
	ErrInvalidInput = errors.New("invalid input")
	// ErrServiceUnavailable reports that the similarity backend could not produce a score.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrConfiguration reports invalid weights or vocabulary tables.
	ErrConfiguration = errors.New("configuration error")
)
