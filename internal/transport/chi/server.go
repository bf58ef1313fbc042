// Package chi is the HTTP transport: JSON endpoints for ingestion, questions,
// usage and health on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	domusage "github.com/kailas-cloud/pdfqa/internal/domain/usage"
	logpkg "github.com/kailas-cloud/pdfqa/internal/logger"
	"github.com/kailas-cloud/pdfqa/internal/metrics"
	healthuc "github.com/kailas-cloud/pdfqa/internal/usecase/health"
	usageuc "github.com/kailas-cloud/pdfqa/internal/usecase/usage"
	"github.com/kailas-cloud/pdfqa/internal/version"
)

const (
	headerEmbeddingTokens  = "X-Embedding-Tokens"
	headerGenerationTokens = "X-Generation-Tokens"

	maxBodyBytes = 1 << 20
)

// Server holds the HTTP handlers.
type Server struct {
	ingester     Ingester
	asker        Asker
	usage        *usageuc.Service
	health       *healthuc.Service
	docsDir      string
	excerptRunes int
	apiKeys      []string
	logger       *zap.Logger

	// one ingestion at a time; a second request gets 409
	ingestMu sync.Mutex
}

// NewServer creates an HTTP API server. docsDir is the folder ingested when
// a request names none, and the root that named folders must stay inside.
func NewServer(
	ingester Ingester,
	asker Asker,
	usage *usageuc.Service,
	health *healthuc.Service,
	docsDir string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingester:     ingester,
		asker:        asker,
		usage:        usage,
		health:       health,
		docsDir:      docsDir,
		excerptRunes: domain.DefaultExcerptRunes,
		logger:       logger,
	}
}

// WithAPIKeys enables bearer authentication on the /v1 routes.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// Routes builds the router with the middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", s.Ingest)
		r.Post("/ask", s.Ask)
		r.Get("/usage", s.Usage)
	})
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Ingest handles POST /v1/ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	dir := s.docsDir
	if req.Dir != "" {
		if !filepath.IsLocal(req.Dir) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "dir must be a relative path inside the documents folder")
			return
		}
		dir = filepath.Join(s.docsDir, req.Dir)
	}

	if !s.ingestMu.TryLock() {
		writeError(w, http.StatusConflict, CodeIngestInProgress, "an ingestion run is already in progress")
		return
	}
	defer s.ingestMu.Unlock()

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.ingester.Ingest(ctx, dir)
	setUsageHeaders(w, usage)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	if report.Degraded() {
		logpkg.FromContext(r.Context()).Warn("Ingestion indexed nothing", zap.Int("chunks", report.Chunks))
	}
	writeJSON(w, http.StatusOK, ingestReportToResponse(dir, report))
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.asker.Answer(ctx, req.Question)
	setUsageHeaders(w, usage)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(ans, s.excerptRunes))
}

// Usage handles GET /v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, ok := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, `period must be "day", "month" or "total"`)
		return
	}
	writeJSON(w, http.StatusOK, usageReportToResponse(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Passages: report.Passages,
		Version:  version.Version,
	})
}

// decodeBody reads a JSON body. With allowEmpty an empty body leaves v unchanged.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(n))
	}
	if n := usage.GenerationTokens(); n > 0 {
		w.Header().Set(headerGenerationTokens, strconv.Itoa(n))
	}
}
