package ai

import "errors"

var (
	// ErrProcessingFailed indicates the provider reached a terminal state
	// other than active while readying uploaded media.
	ErrProcessingFailed = errors.New("provider failed to process media")

	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)
