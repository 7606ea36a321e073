package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/disputehq/creditlens/internal/application"
	domain "github.com/disputehq/creditlens/internal/domain/analysis"
	"github.com/disputehq/creditlens/internal/domain/faults"
	"github.com/disputehq/creditlens/internal/domain/leads"
)

const defaultTickInterval = 2 * time.Second

// Service implements the analysis use-case: capture the lead, make the
// single model call, repair the response, and narrate progress on the
// emitter. Safe for concurrent use across requests; each call owns its own
// ticker.
type Service struct {
	Leads   leads.Repository
	Faults  faults.Repository
	Model   domain.ModelClient
	Archive domain.ArchiveStore // nil when archiving is disabled
	Clock   application.Clock

	// TickInterval overrides the 2s synthetic progress cadence in tests.
	TickInterval time.Duration
}

// Run drives one analysis to a terminal event. It always emits exactly one
// terminal event (completed or error); a nil return means completed was
// emitted and the caller should append the end-of-stream sentinel.
func (s *Service) Run(ctx context.Context, req *domain.Request, out domain.Emitter) error {
	logger := zerolog.Ctx(ctx)

	if req.ID == "" {
		req.ID = domain.RequestID(uuid.New().String())
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = s.Clock.Now()
	}

	s.emit(out, domain.Processing(domain.ProgressUploading, "Uploading credit reports"))
	s.captureLead(ctx, req, logger)
	s.emit(out, domain.Processing(domain.ProgressProcessing, "Processing documents"))
	s.emit(out, domain.Processing(domain.ProgressAnalyzing, "Analyzing reports for violations"))

	// Synthetic progress while the model call is awaited. Cosmetic only:
	// caps at 55 regardless of elapsed time, cancelled on every exit path.
	tickCtx, stopTick := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tick(tickCtx, out)
	}()

	// The call is detached from client cancellation: an abandoned request
	// stops receiving events but the billed model usage runs to completion.
	text, err := s.Model.Analyze(context.WithoutCancel(ctx), req.Files)
	stopTick()
	wg.Wait()

	if err != nil {
		logger.Error().Err(err).Str("request_id", string(req.ID)).Msg("model call failed")
		s.recordFault(req, "model-call", err)
		s.emit(out, domain.Failed(domain.UserMessage(err)))
		return err
	}

	s.emit(out, domain.Processing(domain.ProgressCompiling, "Compiling violation report"))
	result := domain.DecodeModelText(text)
	s.emit(out, domain.Processing(domain.ProgressRecommend, "Preparing dispute recommendations"))
	s.archiveResult(ctx, req, result, logger)
	s.emit(out, domain.Processing(domain.ProgressFinalizing, "Finalizing analysis"))
	s.emit(out, domain.Completed(result))
	return nil
}

// RecentFaults lists the latest persisted analysis failures for the admin
// surface.
func (s *Service) RecentFaults(ctx context.Context, limit int) ([]*faults.AnalysisFault, error) {
	if s.Faults == nil {
		return []*faults.AnalysisFault{}, nil
	}
	return s.Faults.Latest(ctx, limit)
}

// tick emits +3 progress every interval until the cap or cancellation.
func (s *Service) tick(ctx context.Context, out domain.Emitter) {
	interval := s.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	progress := domain.ProgressAnalyzing
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			progress += domain.ProgressTickStep
			if progress >= domain.ProgressTickCap {
				s.emit(out, domain.Processing(domain.ProgressTickCap, "Analyzing reports for violations"))
				return
			}
			s.emit(out, domain.Processing(progress, "Analyzing reports for violations"))
		}
	}
}

// emit ignores write failures: a disconnected client stops receiving but
// must not abort the in-flight model call.
func (s *Service) emit(out domain.Emitter, ev domain.ProgressEvent) {
	_ = out.Emit(ev)
}

// captureLead inserts a lead row when both name and email were supplied.
// Best-effort: failure is logged, never fatal for the analysis.
func (s *Service) captureLead(ctx context.Context, req *domain.Request, logger *zerolog.Logger) {
	if s.Leads == nil || req.LeadName == "" || req.LeadEmail == "" {
		return
	}
	now := s.Clock.Now()
	lead := &leads.Lead{
		ID:        leads.LeadID(uuid.New().String()),
		Name:      req.LeadName,
		Email:     req.LeadEmail,
		IPAddress: req.ClientIP,
		Funnel:    leads.FunnelFlags{UploadedReport: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Leads.Save(ctx, lead); err != nil {
		logger.Warn().Err(err).Str("email", req.LeadEmail).Msg("lead insert failed")
	}
}

func (s *Service) recordFault(req *domain.Request, phase string, cause error) {
	if s.Faults == nil {
		return
	}
	details := "{}"
	var ue *domain.UpstreamError
	if errors.As(cause, &ue) {
		b, _ := json.Marshal(map[string]any{"status": ue.StatusCode, "body": ue.Body})
		details = string(b)
	}
	// Detached context: the client may already be gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Faults.Save(ctx, &faults.AnalysisFault{
		RequestID:   string(req.ID),
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: details,
		CreatedAt:   s.Clock.Now(),
	})
}

func (s *Service) archiveResult(ctx context.Context, req *domain.Request, result *domain.Result, logger *zerolog.Logger) {
	if s.Archive == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := fmt.Sprintf("results/%s.json", req.ID)
	if _, err := s.Archive.PutResult(ctx, key, data); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("result archive failed")
	}
}
