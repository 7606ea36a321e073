package analysis

import (
	"errors"
	"fmt"
)

// ErrNoFiles indicates the multipart body contained none of the bureau fields.
var ErrNoFiles = errors.New("No credit report files provided")

// ErrEmptyModelResponse indicates a 2xx model reply without usable text.
var ErrEmptyModelResponse = errors.New("model response contained no text")

// FileTooLargeError names the offending upload field.
type FileTooLargeError struct {
	Field string
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s file exceeds the %dMB limit", e.Field, e.Limit/(1<<20))
}

// UpstreamError carries the model API's HTTP status. Body is logged
// server-side only and never forwarded to clients.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model api returned status %d", e.StatusCode)
}

// UserMessage maps an analysis failure to the sanitized message emitted on
// the stream. Raw upstream detail stays out of the mapping on purpose.
func UserMessage(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case 429:
			return "The analysis service is temporarily unavailable. Please try again in a few minutes."
		case 403:
			return "Service configuration error. Please contact support."
		case 400:
			return "One of the uploaded files could not be read as a valid PDF."
		default:
			return "Failed to analyze the credit report. Please try again."
		}
	}
	if errors.Is(err, ErrEmptyModelResponse) {
		return "Failed to process the analysis response. Please try again."
	}
	return "Failed to analyze the credit report. Please try again."
}
