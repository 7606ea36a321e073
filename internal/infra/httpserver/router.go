package httpserver

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appanalysis "github.com/disputehq/creditlens/internal/application/analysis"
	appleads "github.com/disputehq/creditlens/internal/application/leads"
	appletters "github.com/disputehq/creditlens/internal/application/letters"
	domanalysis "github.com/disputehq/creditlens/internal/domain/analysis"
	domfaults "github.com/disputehq/creditlens/internal/domain/faults"
	domleads "github.com/disputehq/creditlens/internal/domain/leads"
	domletters "github.com/disputehq/creditlens/internal/domain/letters"
	"github.com/disputehq/creditlens/internal/middleware"
)

// Options wires the router's collaborators and injected limits.
type Options struct {
	Analysis *appanalysis.Service
	Leads    *appleads.Service
	Letters  *appletters.Service
	Gate     *middleware.Gatekeeper

	AdminAPIKeys    map[string]string
	AllowedOrigins  []string
	MaxRequestBytes int64
	MaxFileBytes    int64
	HealthCheckers  map[string]middleware.HealthChecker
	Logger          zerolog.Logger
}

type Router struct {
	analysisSvc *appanalysis.Service
	leadsSvc    *appleads.Service
	lettersSvc  *appletters.Service
	gate        *middleware.Gatekeeper

	maxRequestBytes int64
	maxFileBytes    int64
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		analysisSvc:     opts.Analysis,
		leadsSvc:        opts.Leads,
		lettersSvc:      opts.Letters,
		gate:            opts.Gate,
		maxRequestBytes: opts.MaxRequestBytes,
		maxFileBytes:    opts.MaxFileBytes,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestLogger(&opts.Logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(chimiddleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowOriginFunc: func(req *http.Request, origin string) bool {
			return opts.Gate.OriginAllowed(origin)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze-report", r.handleAnalyze)
		rt.Post("/leads", r.wrap(r.handleCreateLead))
		rt.Patch("/leads/{id}/funnel", r.wrap(r.handleFunnel))
		rt.With(middleware.APIKeyAuth(opts.AdminAPIKeys)).Get("/leads", r.wrap(r.handleListLeads))
		rt.With(middleware.APIKeyAuth(opts.AdminAPIKeys)).Get("/faults", r.wrap(r.handleListFaults))
		rt.Post("/letters/generate", r.wrap(r.handleGenerateLetter))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// statusError carries an explicit HTTP status through the wrap adapter.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(msg string) error { return &statusError{status: http.StatusBadRequest, msg: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var se *statusError
		switch {
		case errors.As(err, &se):
			writeError(w, se.status, se.msg)
		case errors.Is(err, domleads.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domleads.ErrInvalidEmail):
			writeError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domletters.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "letter generation quota exceeded")
		case errors.Is(err, domletters.ErrProviderUnavailable):
			writeError(w, http.StatusBadGateway, "letter generation is temporarily unavailable")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

// POST /v1/analyze-report
//
// Gate checks and ingestion failures answer with a plain JSON error before
// any stream is opened; after the stream starts, failures surface as a
// terminal error event instead.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	if gerr := r.gate.Check(req); gerr != nil {
		if gerr.RetryAfter != "" {
			w.Header().Set("Retry-After", gerr.RetryAfter)
		}
		writeError(w, gerr.Status, gerr.Message)
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxRequestBytes)
	if err := req.ParseMultipartForm(r.maxRequestBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Could not read the upload form")
		return
	}
	defer func() {
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	}()

	files, err := r.ingestFiles(req)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			writeError(w, se.status, se.msg)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, domanalysis.ErrNoFiles.Error())
		return
	}

	analysisReq := &domanalysis.Request{
		Files:     files,
		LeadName:  middleware.SanitizeString(req.FormValue("leadName")),
		LeadEmail: middleware.SanitizeString(req.FormValue("leadEmail")),
		ClientIP:  middleware.ClientIP(req),
	}

	stream, err := newEventStream(w, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	middleware.IncrementAnalysesStarted()
	if err := r.analysisSvc.Run(req.Context(), analysisReq, stream); err != nil {
		middleware.IncrementAnalysesFailed()
		return
	}
	middleware.IncrementAnalysesCompleted()
	stream.Done()
}

// ingestFiles reads the bureau fields in fixed order, enforcing the per-file
// cap and the PDF type check. File content is not inspected beyond that.
func (r *Router) ingestFiles(req *http.Request) ([]domanalysis.BureauFile, error) {
	var files []domanalysis.BureauFile
	for _, bureau := range domanalysis.BureauOrder {
		fh := formFile(req, string(bureau))
		if fh == nil {
			continue
		}
		if fh.Size > r.maxFileBytes {
			ftl := &domanalysis.FileTooLargeError{Field: string(bureau), Limit: r.maxFileBytes}
			return nil, &statusError{status: http.StatusRequestEntityTooLarge, msg: ftl.Error()}
		}
		if !looksLikePDF(fh) {
			return nil, badRequest(fmt.Sprintf("%s file must be a PDF", bureau))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, badRequest(fmt.Sprintf("could not read %s file", bureau))
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, badRequest(fmt.Sprintf("could not read %s file", bureau))
		}
		files = append(files, domanalysis.BureauFile{
			Bureau:   bureau,
			MIMEType: "application/pdf",
			Data:     base64.StdEncoding.EncodeToString(data),
			Size:     fh.Size,
		})
	}
	return files, nil
}

func formFile(req *http.Request, field string) *multipart.FileHeader {
	if req.MultipartForm == nil {
		return nil
	}
	headers := req.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil
	}
	return headers[0]
}

// looksLikePDF accepts on declared content type or filename extension; the
// content itself is forwarded opaquely.
func looksLikePDF(fh *multipart.FileHeader) bool {
	ct := strings.ToLower(fh.Header.Get("Content-Type"))
	if strings.Contains(ct, "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(fh.Filename), ".pdf")
}

// POST /v1/leads
func (r *Router) handleCreateLead(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid json body")
	}
	body.Name = middleware.SanitizeString(body.Name)
	body.Email = strings.TrimSpace(body.Email)
	if err := middleware.ValidateLeadName(body.Name); err != nil {
		return badRequest(err.Error())
	}
	if err := middleware.ValidateEmail(body.Email); err != nil {
		return badRequest(err.Error())
	}

	lead, err := r.leadsSvc.Capture(req.Context(), body.Name, body.Email, middleware.ClientIP(req))
	if err != nil {
		return err
	}
	middleware.IncrementLeadsCaptured()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(lead)
}

// PATCH /v1/leads/{id}/funnel
// Body carries only the flags to change; unknown fields are rejected.
func (r *Router) handleFunnel(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateLeadID(id); err != nil {
		return badRequest(err.Error())
	}

	var body struct {
		ViewedPortal      *bool `json:"viewed_portal"`
		UploadedReport    *bool `json:"uploaded_report"`
		CompletedAnalysis *bool `json:"completed_analysis"`
		RequestedLetters  *bool `json:"requested_letters"`
	}
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return badRequest("invalid funnel update")
	}

	lead, err := r.leadsSvc.Get(req.Context(), domleads.LeadID(id))
	if err != nil {
		return err
	}
	flags := lead.Funnel
	if body.ViewedPortal != nil {
		flags.ViewedPortal = *body.ViewedPortal
	}
	if body.UploadedReport != nil {
		flags.UploadedReport = *body.UploadedReport
	}
	if body.CompletedAnalysis != nil {
		flags.CompletedAnalysis = *body.CompletedAnalysis
	}
	if body.RequestedLetters != nil {
		flags.RequestedLetters = *body.RequestedLetters
	}
	if err := r.leadsSvc.UpdateFunnel(req.Context(), domleads.LeadID(id), flags); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{"id": id, "funnel": flags})
}

// GET /v1/leads?page=&page_size=  (admin)
func (r *Router) handleListLeads(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	page = middleware.ValidatePage(page)
	size = middleware.ValidatePageSize(size)

	list, err := r.leadsSvc.List(req.Context(), page, size)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/faults?limit=  (admin)
func (r *Router) handleListFaults(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analysisSvc.RecentFaults(req.Context(), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domfaults.AnalysisFault{}
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// POST /v1/letters/generate
func (r *Router) handleGenerateLetter(w http.ResponseWriter, req *http.Request) error {
	var body domletters.LetterRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid json body")
	}
	if strings.TrimSpace(body.Bureau) == "" || strings.TrimSpace(body.Creditor) == "" {
		return badRequest("bureau and creditor are required")
	}
	if strings.TrimSpace(body.ViolationSummary) == "" {
		return badRequest("violation_summary is required")
	}
	if strings.TrimSpace(body.ConsumerName) == "" {
		return badRequest("consumer_name is required")
	}

	letter, err := r.lettersSvc.Generate(req.Context(), body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(letter)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "code": status})
}
