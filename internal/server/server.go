package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/raysh454/sitepulse/internal/app"
	"github.com/raysh454/sitepulse/internal/logging"
	_ "github.com/raysh454/sitepulse/internal/server/docs"
)

// Server is the HTTP + WebSocket API surface for SitePulse.
type Server struct {
	cfg      Config
	app      *app.Application
	ownsApp  bool
	router   chi.Router
	handler  http.Handler
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a Server with its own Application.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server").SetLevel(logging.ParseLevel(cfg.AppConfig.LogLevel))
		cfg.Logger = logger
	}

	application, err := app.NewApplication(cfg.AppConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("creating application: %w", err)
	}
	s := NewWithApplication(cfg, application)
	s.ownsApp = true
	return s, nil
}

// NewWithApplication serves an existing Application. Close does not shut it
// down.
func NewWithApplication(cfg Config, application *app.Application) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = application.Logger
	}
	if cfg.ListenAddr == "" && application.Config != nil {
		cfg.ListenAddr = application.Config.ListenAddr
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:    cfg,
		app:    application,
		router: r,
		logger: logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return cfg.AllowedOrigin == "*" || origin == "" || origin == cfg.AllowedOrigin
			},
		},
	}
	s.routes()
	s.handler = otelhttp.NewHandler(r, "sitepulse-api")
	return s
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.app.Orch
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/audits", s.optionsHandler("GET, POST"))
	r.Options("/audits/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/sites", s.optionsHandler("GET"))
	r.Options("/sites/{siteID}", s.optionsHandler("GET, DELETE"))

	r.Get("/healthz", s.handleHealth)

	// Audit jobs over REST
	r.Post("/audits", s.handleStartAudit)
	r.Get("/audits", s.handleListJobs)
	r.Get("/audits/{jobID}", s.handleGetJob)
	r.Delete("/audits/{jobID}", s.handleCancelJob)

	// WebSocket for job progress
	r.Get("/ws/audits", s.handleAuditWS)

	// Stored sites
	r.Get("/sites", s.handleListSites)
	r.Get("/sites/{siteID}", s.handleGetSite)
	r.Delete("/sites/{siteID}", s.handleDeleteSite)
	r.Get("/sites/{siteID}/history", s.handleSiteHistory)
	r.Get("/sites/{siteID}/pages", s.handleSitePages)
	r.Get("/sites/{siteID}/diff", s.handleSiteDiff)
	r.Get("/sites/{siteID}/export.csv", s.handleExportCSV)
	r.Get("/sites/{siteID}/export.xlsx", s.handleExportXLSX)
	r.Get("/versions/{versionID}", s.handleGetVersion)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.handler.ServeHTTP(w, r)
}

// Close stops running jobs and, when the server created it, shuts the
// application down.
func (s *Server) Close() {
	if s.app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if s.ownsApp {
		if err := s.app.Shutdown(ctx); err != nil {
			s.logger.Warn("application shutdown", logging.Field{Key: "error", Value: err.Error()})
		}
		return
	}
	if err := s.app.Orch.Shutdown(ctx); err != nil {
		s.logger.Warn("orchestrator shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleHealth godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Audit jobs ---

func (s *Server) startAudit(req StartAuditRequest) (*app.Job, int, error) {
	job, err := s.app.Orch.StartAudit(app.AuditRequest{
		URL:           req.URL,
		SiteID:        req.SiteID,
		CrawlDepth:    req.CrawlDepth,
		SkipPageSpeed: req.SkipPageSpeed,
		Strategy:      req.Strategy,
	})
	switch {
	case err == nil:
		return job, http.StatusAccepted, nil
	case errors.Is(err, app.ErrInvalidTarget):
		return nil, http.StatusBadRequest, err
	case errors.Is(err, app.ErrOrchestratorClosed):
		return nil, http.StatusServiceUnavailable, err
	default:
		return nil, http.StatusInternalServerError, err
	}
}

// handleStartAudit godoc
// @Summary Start an audit job
// @Description Discovers, audits and scores a site in the background. Progress is available from GET /audits/{jobID} or the /ws/audits stream.
// @Tags audits
// @Accept json
// @Produce json
// @Param request body StartAuditRequest true "Audit target"
// @Success 202 {object} app.Job
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /audits [post]
func (s *Server) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	var body StartAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding start audit body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	job, status, err := s.startAudit(body)
	if err != nil {
		s.logger.Warn("starting audit job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, status, err.Error())
		return
	}
	s.logger.Info("started audit job", logging.Field{Key: "job_id", Value: job.ID}, logging.Field{Key: "url", Value: job.URL})
	writeJSON(w, status, job)
}

// handleGetJob godoc
// @Summary Get an audit job
// @Tags audits
// @Produce json
// @Param jobID path string true "Job ID"
// @Success 200 {object} app.Job
// @Failure 404 {object} ErrorResponse
// @Router /audits/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.app.Orch.GetJob(jobID)
	if err != nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob godoc
// @Summary Cancel an audit job
// @Tags audits
// @Param jobID path string true "Job ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /audits/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.app.Orch.CancelJob(jobID); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	w.WriteHeader(http.StatusNoContent)
}

// handleListJobs godoc
// @Summary List audit jobs
// @Tags audits
// @Produce json
// @Success 200 {array} app.Job
// @Router /audits [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.app.Orch.ListJobs()
	s.logger.Info("listed jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

// handleAuditWS godoc
// @Summary Start an audit and stream its events
// @Description Upgrades to a WebSocket, sends the job, then one JobEvent per message until the job finishes, then the final job state. Closing the socket cancels the job.
// @Tags audits
// @Param url query string true "Target URL"
// @Param depth query int false "Crawl depth"
// @Param siteId query string false "Site ID"
// @Router /ws/audits [get]
func (s *Server) handleAuditWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := StartAuditRequest{
		URL:           q.Get("url"),
		SiteID:        q.Get("siteId"),
		SkipPageSpeed: q.Get("skipPageSpeed") == "true",
	}
	if d, err := strconv.Atoi(q.Get("depth")); err == nil {
		req.CrawlDepth = d
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	job, _, err := s.startAudit(req)
	if err != nil {
		s.logger.Warn("starting audit job", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started audit job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events, err := s.app.Orch.Subscribe(ctx, job.ID)
	if err != nil {
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}
	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			_ = s.app.Orch.CancelJob(job.ID)
			return
		}
	}

	if final, err := s.app.Orch.GetJob(job.ID); err == nil {
		_ = conn.WriteJSON(final)
	}
}
