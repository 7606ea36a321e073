package analysis

import "context"

// ModelClient port (interface for the hosted model API). Analyze makes the
// single outbound call and returns the model's raw text output.
type ModelClient interface {
	Analyze(ctx context.Context, files []BureauFile) (string, error)
}

// ArchiveStore port for the opt-in result archive.
type ArchiveStore interface {
	PutResult(ctx context.Context, key string, data []byte) (string, error)
}

// Emitter receives stream events in order. Implementations must be safe for
// concurrent use: the progress ticker emits while the model call is awaited.
type Emitter interface {
	Emit(ev ProgressEvent) error
}
