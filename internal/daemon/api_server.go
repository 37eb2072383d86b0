package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/config"
	"reeldesk/internal/feed"
	"reeldesk/internal/logging"
	"reeldesk/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 * 1024

type apiServer struct {
	bind     string
	cfg      *config.Config
	logger   *slog.Logger
	daemon   *Daemon
	verifier *auth.Verifier
	ws       *feed.WebsocketServer

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		verifier: auth.NewVerifier(cfg.Auth),
	}
	srv.ws = feed.NewWebsocketServer(d.hub, cfg.Feed.AllowedOrigins, srv.logger)
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.Feed.LongPollSeconds)*time.Second + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

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

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Wrap(services.ErrValidation, "api", "", "request body is empty", nil)
		}
		return services.Wrap(services.ErrValidation, "api", "", "invalid request body", err)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps err to its HTTP status. Internal failures are logged
// and reported without detail.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.StatusCode(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusBadGateway {
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.ErrorHint("run reeldesk doctor to check the database"),
		)
		s.writeJSON(w, status, api.ErrorResponse{Error: "internal error", Kind: services.Kind(err)})
		return
	}
	logger.Debug("request rejected",
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
		logging.Error(err),
	)
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: services.Kind(err)})
}
