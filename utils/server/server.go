// Package server exposes the upsampling pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/history"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/template"
)

// Server serves the tagup API for the models in a catalog
type Server struct {
	config    *config.ServerConfig
	envConfig *config.EnvConfig
	catalog   *models.Catalog
	journal   *history.Journal
	logger    *zap.Logger
	mux       *http.ServeMux
}

// New creates a server. journal may be nil to disable run history.
func New(envConfig *config.EnvConfig, catalog *models.Catalog, journal *history.Journal, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:    &envConfig.Server,
		envConfig: envConfig,
		catalog:   catalog,
		journal:   journal,
		logger:    logger.Named("server"),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/v1/models", s.handleListModels)
	s.mux.HandleFunc("/v1/upsample", s.handleUpsample)
	s.mux.HandleFunc("/v1/generate", s.handleGenerate)
	s.mux.HandleFunc("/v1/format", s.handleFormat)
	s.mux.HandleFunc("/v1/parse", s.handleParse)
	s.mux.HandleFunc("/v1/aspect", s.handleAspect)
	s.mux.HandleFunc("/v1/ban", s.handleBan)
}

// Handler returns the API with logging, CORS and authentication applied
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.authenticate(s.mux)))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", srv.Addr), zap.Strings("models", s.envConfig.ModelNames()))
		config.VerboseLog("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Models int    `json:"models"`
	// TagLists counts the cached tag list files
	TagLists int `json:"tag_lists"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Models:   len(s.envConfig.Models),
		TagLists: s.catalog.Store().Len(),
	})
}

// authenticate requires the configured bearer token on every path but /health
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.BearerToken == "" || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.config.BearerToken {
			writeError(w, http.StatusUnauthorized, "Invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	c := s.config.CORS
	if !c.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", strings.Join(c.AllowedOrigins, ", "))
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// Response is the envelope of every non-OpenAI endpoint
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Model   string      `json:"model,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

func writeResult(w http.ResponseWriter, model string, result interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Model: model, Result: result})
}

// decodePost checks the method and decodes the JSON body into v. It writes
// the error response and returns false on failure.
func decodePost(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST.")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps an error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, template.ErrUnknownTemplate),
		errors.Is(err, template.ErrUnknownEnumValue),
		errors.Is(err, template.ErrUnresolvedAuto),
		errors.Is(err, template.ErrMissingValue),
		errors.Is(err, template.ErrMalformedTemplate),
		errors.Is(err, models.ErrEncoderInputUnsupported),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBackendNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// errBadRequest marks request validation failures
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}
