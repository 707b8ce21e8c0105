// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrapeworks/jobscraper/internal/config"
	"github.com/scrapeworks/jobscraper/internal/dispatcher"
	"github.com/scrapeworks/jobscraper/internal/metrics"
	"github.com/scrapeworks/jobscraper/internal/scraper"
)

// Server wires HTTP handlers to the dispatcher and job store.
type Server struct {
	router     chi.Router
	jobStore   scraper.JobStore
	dispatcher *dispatcher.Dispatcher
	idGen      scraper.IDGenerator
	clock      scraper.Clock
	cfg        config.Config
	logger     *zap.Logger
}

const waitPollInterval = 250 * time.Millisecond

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobStore scraper.JobStore,
	dispatcher *dispatcher.Dispatcher,
	idGen scraper.IDGenerator,
	clock scraper.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	metrics.Init()
	s := &Server{
		jobStore:   jobStore,
		dispatcher: dispatcher,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(chimiddleware.Timeout(requestTimeout(cfg)))

	r.Get("/health", s.health)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/scrape", s.submitScrape)
		r.Route("/jobs/{job_id}", func(r chi.Router) {
			r.Get("/status", s.getJobStatus)
			r.Get("/result", s.getJobResult)
			r.Post("/cancel", s.cancelJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"application": s.cfg.App.Name,
		"message":     "service is running",
	})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) submitScrape(w http.ResponseWriter, r *http.Request) {
	var query scraper.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	jobID, err := s.Submit(r.Context(), query)
	if err != nil {
		var verr *scraper.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidationError(w, verr)
		case errors.Is(err, scraper.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "queue is full, retry later")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if wait := parseWait(r, s.cfg.MaxWait()); wait > 0 {
		if job, ok := s.awaitTerminal(r.Context(), jobID, wait); ok {
			writeJSON(w, http.StatusOK, map[string]any{"job": job})
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": string(scraper.JobStatusQueued),
		"links": map[string]string{
			"status": fmt.Sprintf("/jobs/%s/status", jobID),
			"result": fmt.Sprintf("/jobs/%s/result", jobID),
		},
	})
}

// Submit validates a query, persists a queued job, and hands it to the
// dispatcher. The scheduler shares this path with the HTTP handler.
func (s *Server) Submit(ctx context.Context, query scraper.SearchQuery) (string, error) {
	if err := query.Validate(); err != nil {
		return "", err
	}
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := scraper.Job{
		ID:        jobID,
		Query:     query,
		Status:    scraper.JobStatusQueued,
		Submitted: now,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	item := scraper.QueueItem{
		JobID:     jobID,
		Query:     query,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(ctx, item); err != nil {
		if errors.Is(err, scraper.ErrQueueFull) {
			// The job row stays behind as failed so the ID is not a dangling
			// reference for clients that already saw it.
			_ = s.jobStore.UpdateJobStatus(ctx, jobID, scraper.JobStatusFailed, "queue full at submission", scraper.JobCounters{})
			return "", err
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

// awaitTerminal polls the job store until the job finishes or the wait
// budget runs out. It reports whether a terminal job was observed.
func (s *Server) awaitTerminal(ctx context.Context, jobID string, wait time.Duration) (scraper.Job, bool) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := s.jobStore.GetJob(ctx, jobID)
		if err == nil && job.Status.IsTerminal() {
			return job, true
		}
		select {
		case <-ctx.Done():
			return scraper.Job{}, false
		case <-deadline.C:
			return scraper.Job{}, false
		case <-ticker.C:
		}
	}
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if !job.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "job has not finished")
		return
	}
	records, err := s.jobStore.ListResults(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job, "records": records})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "job already finished")
		return
	}

	if job.Status == scraper.JobStatusRunning && s.dispatcher.Cancel(jobID) {
		// The worker observes the canceled context and records the final
		// status itself.
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "canceling"})
		return
	}

	if err := s.jobStore.UpdateJobStatus(
		r.Context(),
		jobID,
		scraper.JobStatusCanceled,
		"canceled via API",
		job.Counters,
	); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": string(scraper.JobStatusCanceled)})
}

// requestTimeout returns the per-request deadline, raised above the maximum
// ?wait= window so bounded submit waits finish before the cutoff.
func requestTimeout(cfg config.Config) time.Duration {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if timeout <= cfg.MaxWait() {
		timeout = cfg.MaxWait() + 5*time.Second
	}
	return timeout
}

func parseWait(r *http.Request, maxWait time.Duration) time.Duration {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	wait := time.Duration(secs) * time.Second
	if wait > maxWait {
		wait = maxWait
	}
	return wait
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client went away, nothing useful to do
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeValidationError(w http.ResponseWriter, verr *scraper.ValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]string{
			"field":  verr.Field,
			"reason": verr.Reason,
		},
	})
}
