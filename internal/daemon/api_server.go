package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"audioflip/internal/api"
	"audioflip/internal/config"
	"audioflip/internal/hotplug"
	"audioflip/internal/logging"
	"audioflip/internal/switcher"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.API.Token),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      hotplug.MaxWait + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(token, s.withRequestContext(h)))
	}
	handle("GET /api/status", s.handleStatus)
	handle("GET /api/devices", s.handleDevices)
	handle("POST /api/devices/{id}/toggle", s.handleToggle)
	handle("PUT /api/devices/{id}/rotation", s.handleRotation(true))
	handle("DELETE /api/devices/{id}/rotation", s.handleRotation(false))
	handle("POST /api/cycle", s.handleCycle)
	handle("GET /api/history", s.handleHistory)
	handle("GET /api/events", s.handleEvents)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
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

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()))
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
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// address reports the bound address, which differs from the configured bind
// when it used port 0.
func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// withRequestContext tags the request with a correlation id, reusing the
// caller's X-Request-ID when present.
func (s *apiServer) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.WithOrigin(logging.WithRequestID(r.Context(), requestID), "http")
		next(w, r.WithContext(ctx))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	s.writeDevices(w, s.daemon.Devices().List(r.Context()))
}

func (s *apiServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, api.KindInvalidRequest, "device id is required")
		return
	}
	s.writeDevices(w, s.daemon.Devices().Toggle(r.Context(), id))
}

func (s *apiServer) handleCycle(w http.ResponseWriter, r *http.Request) {
	s.writeDevices(w, s.daemon.Devices().Cycle(r.Context()))
}

func (s *apiServer) handleRotation(include bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		if id == "" {
			s.writeError(w, http.StatusBadRequest, api.KindInvalidRequest, "device id is required")
			return
		}
		s.writeDevices(w, s.daemon.Devices().SetRotation(r.Context(), id, include))
	}
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := s.daemon.Devices().History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, api.KindInternal, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	waitMillis, _ := strconv.Atoi(query.Get("wait_ms"))
	wait := min(time.Duration(waitMillis)*time.Millisecond, hotplug.MaxWait)

	resp, err := s.daemon.Events(r.Context(), since, limit, wait)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeError(w, http.StatusInternalServerError, api.KindInternal, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// statusForKind maps coordinator error kinds onto HTTP status codes.
func statusForKind(kind string) int {
	switch switcher.Kind(kind) {
	case switcher.KindNotFound:
		return http.StatusNotFound
	case switcher.KindDisabled:
		return http.StatusConflict
	case switcher.KindBusy:
		return http.StatusLocked
	case switcher.KindSwitchFailed:
		return http.StatusBadGateway
	case switcher.KindEnumeration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeDevices(w http.ResponseWriter, resp api.DevicesResponse) {
	status := http.StatusOK
	if resp.Error != nil {
		status = statusForKind(resp.Error.Kind)
		if resp.Error.Kind == string(switcher.KindBusy) {
			w.Header().Set("Retry-After", "1")
		}
	}
	s.writeJSON(w, status, resp)
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, map[string]api.ErrorInfo{
		"error": {Kind: kind, Message: message},
	})
}
