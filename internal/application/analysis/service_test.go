package analysis

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disputehq/creditlens/internal/application"
	domain "github.com/disputehq/creditlens/internal/domain/analysis"
	"github.com/disputehq/creditlens/internal/domain/faults"
	"github.com/disputehq/creditlens/internal/domain/leads"
)

type stubModel struct {
	text  string
	err   error
	delay time.Duration
}

func (m *stubModel) Analyze(ctx context.Context, _ []domain.BureauFile) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.text, m.err
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (e *recordingEmitter) Emit(ev domain.ProgressEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *recordingEmitter) snapshot() []domain.ProgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.ProgressEvent(nil), e.events...)
}

type memLeads struct {
	leads.Repository
	mu    sync.Mutex
	saved []*leads.Lead
}

func (m *memLeads) Save(_ context.Context, l *leads.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, l)
	return nil
}

type memFaults struct {
	faults.Repository
	mu    sync.Mutex
	saved []*faults.AnalysisFault
}

func (m *memFaults) Save(_ context.Context, f *faults.AnalysisFault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, f)
	return nil
}

func newTestService(model domain.ModelClient) (*Service, *memLeads, *memFaults) {
	lr := &memLeads{}
	fr := &memFaults{}
	return &Service{
		Leads:        lr,
		Faults:       fr,
		Model:        model,
		Clock:        application.SystemClock{},
		TickInterval: time.Millisecond,
	}, lr, fr
}

func TestRunHappyPath(t *testing.T) {
	svc, lr, _ := newTestService(&stubModel{
		text:  `{"summary": "two violations found", "fcraViolations": [{"statute": "1681e(b)"}]}`,
		delay: 20 * time.Millisecond,
	})
	out := &recordingEmitter{}
	req := &domain.Request{
		Files:     []domain.BureauFile{{Bureau: domain.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="}},
		LeadName:  "Jane Doe",
		LeadEmail: "jane@example.com",
		ClientIP:  "203.0.113.7",
	}

	err := svc.Run(context.Background(), req, out)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID, "run assigns a request id")

	events := out.snapshot()
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, domain.StatusCompleted, last.Status)
	assert.Equal(t, domain.ProgressDone, last.Progress)
	require.NotNil(t, last.Result)
	assert.Equal(t, "two violations found", last.Result.Summary)
	require.Len(t, last.Result.FCRAViolations, 1)

	for i, ev := range events[:len(events)-1] {
		assert.Equal(t, domain.StatusProcessing, ev.Status, "event %d", i)
	}

	require.Len(t, lr.saved, 1)
	assert.Equal(t, "jane@example.com", lr.saved[0].Email)
	assert.True(t, lr.saved[0].Funnel.UploadedReport)
}

func TestRunSkipsLeadWithoutEmail(t *testing.T) {
	svc, lr, _ := newTestService(&stubModel{text: `{"summary": "ok"}`})
	out := &recordingEmitter{}

	err := svc.Run(context.Background(), &domain.Request{
		Files:    []domain.BureauFile{{Bureau: domain.BureauEquifax, MIMEType: "application/pdf", Data: "QQ=="}},
		LeadName: "Jane Doe",
	}, out)

	require.NoError(t, err)
	assert.Empty(t, lr.saved)
}

func TestRunTickerCapsAtCeiling(t *testing.T) {
	svc, _, _ := newTestService(&stubModel{text: `{"summary": "ok"}`, delay: 40 * time.Millisecond})
	out := &recordingEmitter{}

	err := svc.Run(context.Background(), &domain.Request{
		Files: []domain.BureauFile{{Bureau: domain.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="}},
	}, out)
	require.NoError(t, err)

	sawCap := false
	for _, ev := range out.snapshot() {
		if ev.Status != domain.StatusProcessing {
			continue
		}
		if ev.Progress > domain.ProgressAnalyzing && ev.Progress < domain.ProgressCompiling {
			assert.LessOrEqual(t, ev.Progress, domain.ProgressTickCap)
			if ev.Progress == domain.ProgressTickCap {
				sawCap = true
			}
		}
	}
	assert.True(t, sawCap, "synthetic progress should reach the ceiling during a slow model call")
}

func TestRunModelFailure(t *testing.T) {
	svc, _, fr := newTestService(&stubModel{
		err: &domain.UpstreamError{StatusCode: http.StatusTooManyRequests, Body: `{"error":"quota"}`},
	})
	out := &recordingEmitter{}
	req := &domain.Request{
		ID:    "req-1",
		Files: []domain.BureauFile{{Bureau: domain.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="}},
	}

	err := svc.Run(context.Background(), req, out)
	require.Error(t, err)

	events := out.snapshot()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, domain.StatusError, last.Status)
	assert.Equal(t, "The analysis service is temporarily unavailable. Please try again in a few minutes.", last.Message)
	assert.Nil(t, last.Result)

	require.Len(t, fr.saved, 1)
	assert.Equal(t, "req-1", fr.saved[0].RequestID)
	assert.Equal(t, "model-call", fr.saved[0].Phase)
	assert.Contains(t, fr.saved[0].DetailsJSON, "429")
}

type cancelAwareModel struct {
	delay     time.Duration
	sawCancel bool
}

func (m *cancelAwareModel) Analyze(ctx context.Context, _ []domain.BureauFile) (string, error) {
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		m.sawCancel = true
		return "", ctx.Err()
	}
	if ctx.Err() != nil {
		m.sawCancel = true
	}
	return `{"summary": "ok"}`, nil
}

func TestRunModelCallSurvivesClientDisconnect(t *testing.T) {
	model := &cancelAwareModel{delay: 60 * time.Millisecond}
	svc, _, _ := newTestService(model)
	out := &recordingEmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := svc.Run(ctx, &domain.Request{
		Files: []domain.BureauFile{{Bureau: domain.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="}},
	}, out)
	require.NoError(t, err, "an abandoned client must not abort the analysis")

	assert.False(t, model.sawCancel, "the model call must not observe client cancellation")

	events := out.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, domain.StatusCompleted, events[len(events)-1].Status)
}

type recordingArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *recordingArchive) PutResult(_ context.Context, key string, _ []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return "http://archive.local/" + key, nil
}

func TestRunArchivesResultWhenEnabled(t *testing.T) {
	svc, _, _ := newTestService(&stubModel{text: `{"summary": "ok"}`})
	archive := &recordingArchive{}
	svc.Archive = archive

	req := &domain.Request{
		ID:    "req-arch",
		Files: []domain.BureauFile{{Bureau: domain.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="}},
	}
	require.NoError(t, svc.Run(context.Background(), req, &recordingEmitter{}))

	require.Len(t, archive.keys, 1)
	assert.Equal(t, "results/req-arch.json", archive.keys[0])
}

func TestRunSkipsArchiveWhenDisabled(t *testing.T) {
	svc, _, _ := newTestService(&stubModel{text: `{"summary": "ok"}`})
	svc.Archive = nil

	err := svc.Run(context.Background(), &domain.Request{
		Files: []domain.BureauFile{{Bureau: domain.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="}},
	}, &recordingEmitter{})
	require.NoError(t, err)
}

func TestRunMalformedModelTextStillCompletes(t *testing.T) {
	svc, _, _ := newTestService(&stubModel{text: `{"summary": "partial", "fcraViolations": [{"statute"`})
	out := &recordingEmitter{}

	err := svc.Run(context.Background(), &domain.Request{
		Files: []domain.BureauFile{{Bureau: domain.BureauTransUnion, MIMEType: "application/pdf", Data: "QQ=="}},
	}, out)
	require.NoError(t, err)

	events := out.snapshot()
	last := events[len(events)-1]
	require.Equal(t, domain.StatusCompleted, last.Status)
	require.NotNil(t, last.Result)
	assert.NotNil(t, last.Result.FCRAViolations, "recovered result keeps schema-valid lists")
}
