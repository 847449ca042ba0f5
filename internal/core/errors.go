// internal/core/errors.go
package core

import "errors"

// Define custom errors for better error handling and classification
var (
	// Run-aborting conditions detected while learning the target.
	ErrPageTooHuge  = errors.New("the page is too huge")
	ErrUnstableCode = errors.New("the page is not stable (code)")

	// A batch was rejected by the server's own parameter ceiling.
	ErrTooManyParameters = errors.New("the server rejected the amount of parameters")

	// Malformed configuration reaching the engine.
	ErrMissingTarget = errors.New("a target was not provided")
	ErrWrongScheme   = errors.New("wrong scheme")
	ErrEmptyWordlist = errors.New("the wordlist is empty")

	ErrNetworkTimeout = errors.New("network request timed out")
	ErrNetworkError   = errors.New("network error occurred")
	ErrOutputFormat   = errors.New("unsupported output format")
	ErrFileWrite      = errors.New("failed to write to file")
)
