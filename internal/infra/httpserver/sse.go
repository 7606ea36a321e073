package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	domain "github.com/disputehq/creditlens/internal/domain/analysis"
)

var errStreamingUnsupported = errors.New("response writer does not support streaming")

// eventStream writes ProgressEvents as server-sent-events lines. It is safe
// for concurrent use (the progress ticker emits while the model call is in
// flight) and clamps progress so emitted values never decrease.
type eventStream struct {
	w   http.ResponseWriter
	f   http.Flusher
	ctx context.Context

	mu   sync.Mutex
	last int
}

func newEventStream(w http.ResponseWriter, r *http.Request) (*eventStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &eventStream{w: w, f: f, ctx: r.Context()}, nil
}

// Emit implements analysis.Emitter.
func (s *eventStream) Emit(ev domain.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctx.Err(); err != nil {
		return err
	}
	if ev.Status == domain.StatusProcessing {
		if ev.Progress < s.last {
			ev.Progress = s.last
		}
		s.last = ev.Progress
	} else if ev.Status == domain.StatusCompleted {
		s.last = domain.ProgressDone
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Done writes the end-of-stream sentinel. Success path only.
func (s *eventStream) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.f.Flush()
}
