package letters

import "errors"

// ErrQuotaExceeded indicates the letter provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("letter provider quota exceeded")

// ErrProviderUnavailable indicates the letter provider failed for any other reason.
var ErrProviderUnavailable = errors.New("letter provider unavailable")
