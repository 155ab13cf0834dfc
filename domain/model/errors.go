package model

import "errors"

// Backend error taxonomy. The worker is the only translator from these kinds
// to job states; the HTTP surface never interprets them directly.

// ErrNotFound is returned when a dashboard or stats row does not exist.
var ErrNotFound = errors.New("not found")

// BackendError is the terminal catch-all for backend failures.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return "backend error: " + e.Op
	}
	return "backend error: " + e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

// QuotaExceededError is raised by the API backend when the daily quota is
// exhausted. It triggers fall-through to the scraper backend if configured.
type QuotaExceededError struct {
	Err error
}

func (e *QuotaExceededError) Error() string {
	if e.Err == nil {
		return "youtube api quota exceeded"
	}
	return "youtube api quota exceeded: " + e.Err.Error()
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// BotChallengeError is raised by the scraper backend when bot detection
// persists past the retry budget. Jobs hitting it become blocked, not failed.
type BotChallengeError struct {
	Attempts int
	Err      error
}

func (e *BotChallengeError) Error() string {
	if e.Err == nil {
		return "bot challenge"
	}
	return "bot challenge after retries: " + e.Err.Error()
}

func (e *BotChallengeError) Unwrap() error { return e.Err }

// RateLimitError is raised when a service answers HTTP 429 and retries did
// not absorb it.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return "rate limited"
	}
	return "rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// VideoFetchError marks a single video detail fetch that failed. It is never
// fatal for the playlist; the skeleton row is kept instead.
type VideoFetchError struct {
	VideoID string
	Err     error
}

func (e *VideoFetchError) Error() string {
	if e.Err == nil {
		return "video fetch failed: " + e.VideoID
	}
	return "video fetch failed: " + e.VideoID + ": " + e.Err.Error()
}

func (e *VideoFetchError) Unwrap() error { return e.Err }

// IsQuotaExceeded reports whether err wraps a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsBotChallenge reports whether err wraps a BotChallengeError.
func IsBotChallenge(err error) bool {
	var bc *BotChallengeError
	return errors.As(err, &bc)
}

// IsRateLimit reports whether err wraps a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
