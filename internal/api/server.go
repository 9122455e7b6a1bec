package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"audiopress/internal/deps"
	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/services"
	"audiopress/internal/store"
)

// Converter runs conversion jobs and metadata lookups. Implemented by
// the pipeline.
type Converter interface {
	Process(ctx context.Context, req media.DownloadRequest) (media.ArtifactDescriptor, error)
	Metadata(ctx context.Context, rawURL string) (media.VideoMetadata, error)
}

// History reads conversion history for the status and recent endpoints.
type History interface {
	ListRecent(ctx context.Context, limit int) ([]store.Conversion, error)
	Count(ctx context.Context) (store.Counters, error)
}

// DependencyReporter describes external tool availability.
type DependencyReporter interface {
	Report(ctx context.Context) []deps.Status
}

type Options struct {
	Bind         string
	Converter    Converter
	History      History // nil disables /api/recent rows and counters
	Dependencies DependencyReporter
	CompletedDir string // root served under /downloads/
	Authorize    Authorizer
	Limiter      *rate.Limiter
	Logger       *slog.Logger
}

type Server struct {
	bind      string
	converter Converter
	history   History
	deps      DependencyReporter
	authorize Authorizer
	logger    *slog.Logger
	handler   http.Handler

	listener net.Listener
	server   *http.Server
}

func NewServer(opts Options) (*Server, error) {
	if opts.Converter == nil {
		return nil, fmt.Errorf("api: converter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authorize := opts.Authorize
	if authorize == nil {
		authorize = allowAll
	}
	srv := &Server{
		bind:      strings.TrimSpace(opts.Bind),
		converter: opts.Converter,
		history:   opts.History,
		deps:      opts.Dependencies,
		authorize: authorize,
		logger:    logging.NewComponentLogger(logger, "api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/convert", srv.handleConvert)
	mux.HandleFunc("/api/metadata", srv.handleMetadata)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/recent", srv.handleRecent)
	if opts.CompletedDir != "" {
		mux.Handle("/downloads/", http.StripPrefix("/downloads/",
			http.FileServer(http.Dir(opts.CompletedDir))))
	}

	srv.handler = withRequestID(withRateLimit(opts.Limiter, srv.rejectRateLimited, mux))
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Minute, // conversions run inside the request
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the listener and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, draining in-flight requests briefly.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.authorize(r); err != nil {
		s.writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var payload ConvertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	quality, err := media.ParseQuality(payload.Quality)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "quality must be 128 or 320")
		return
	}
	req := media.DownloadRequest{
		SourceURL:      strings.TrimSpace(payload.URL),
		RequestedTitle: strings.TrimSpace(payload.Title),
		Quality:        quality,
	}

	artifact, err := s.converter.Process(r.Context(), req)
	if err != nil {
		s.logger.Warn("conversion failed",
			logging.String(logging.FieldURL, req.SourceURL),
			logging.Error(err))
		s.writeError(w, services.HTTPStatus(err), services.UserMessage(err))
		return
	}
	s.writeJSON(w, http.StatusOK, convertResponse(artifact))
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	meta, err := s.converter.Metadata(r.Context(), rawURL)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), services.UserMessage(err))
		return
	}
	s.writeJSON(w, http.StatusOK, metadataResponse(meta))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := StatusResponse{Running: true, PID: os.Getpid()}
	if s.history != nil {
		counters, err := s.history.Count(r.Context())
		if err != nil {
			s.logger.Warn("history count failed", logging.Error(err))
		} else {
			payload.Completed = counters.Completed
			payload.Failed = counters.Failed
		}
	}
	if s.deps != nil {
		for _, status := range s.deps.Report(r.Context()) {
			payload.Dependencies = append(payload.Dependencies, DependencyStatus{
				Name:      status.Name,
				Command:   status.Command,
				Optional:  status.Optional,
				Available: status.Available,
				Version:   status.Version,
				Detail:    status.Detail,
			})
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	response := RecentResponse{Items: []RecentEntry{}}
	if s.history != nil {
		conversions, err := s.history.ListRecent(r.Context(), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		for _, conv := range conversions {
			response.Items = append(response.Items, recentEntry(conv))
		}
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
