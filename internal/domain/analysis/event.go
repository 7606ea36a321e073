package analysis

// Status enum for stream events
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Progress checkpoints for the relay. The ticker fabricates intermediate
// values between ProgressAnalyzing and ProgressTickCap while the model call
// is in flight; the cap holds regardless of elapsed time.
const (
	ProgressUploading  = 5
	ProgressProcessing = 15
	ProgressAnalyzing  = 25
	ProgressTickStep   = 3
	ProgressTickCap    = 55
	ProgressCompiling  = 60
	ProgressRecommend  = 80
	ProgressFinalizing = 95
	ProgressDone       = 100
)

// ProgressEvent is one line of the event stream. Processing events carry a
// progress value in [0,99]; completed events carry the result and progress
// 100; error events terminate the stream.
type ProgressEvent struct {
	Status   Status  `json:"status"`
	Progress int     `json:"progress"`
	Message  string  `json:"message,omitempty"`
	Result   *Result `json:"result,omitempty"`
}

// Processing builds an intermediate event.
func Processing(progress int, message string) ProgressEvent {
	return ProgressEvent{Status: StatusProcessing, Progress: progress, Message: message}
}

// Completed builds the terminal success event.
func Completed(result *Result) ProgressEvent {
	return ProgressEvent{Status: StatusCompleted, Progress: ProgressDone, Result: result}
}

// Failed builds the terminal error event.
func Failed(message string) ProgressEvent {
	return ProgressEvent{Status: StatusError, Message: message}
}
