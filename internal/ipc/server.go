package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"audioflip/internal/daemon"
	"audioflip/internal/hotplug"
	"audioflip/internal/logging"
)

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "AudioFlip"

// Server exposes the daemon via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Connections still open
// finish their in-flight call before the codec sees EOF.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun audioflip stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// requestContext tags the call with its origin and a request id.
func (s *service) requestContext(id RequestID) context.Context {
	rid := id.RequestID
	if rid == "" {
		rid = uuid.NewString()
	}
	ctx := logging.WithRequestID(s.ctx, rid)
	return logging.WithOrigin(ctx, "ipc")
}

func (s *service) ListDevices(req ListDevicesRequest, resp *DevicesResponse) error {
	*resp = s.daemon.Devices().List(s.requestContext(req.RequestID))
	return nil
}

func (s *service) ToggleDevice(req ToggleDeviceRequest, resp *DevicesResponse) error {
	if req.ID == "" {
		return errors.New("toggle requires a device id")
	}
	ctx := s.requestContext(req.RequestID)
	logging.WithContext(ctx, s.logger).Debug("toggle requested",
		logging.String(logging.FieldDeviceID, req.ID))
	*resp = s.daemon.Devices().Toggle(ctx, req.ID)
	return nil
}

func (s *service) Cycle(req CycleRequest, resp *DevicesResponse) error {
	*resp = s.daemon.Devices().Cycle(s.requestContext(req.RequestID))
	return nil
}

func (s *service) SetRotation(req SetRotationRequest, resp *DevicesResponse) error {
	if req.ID == "" {
		return errors.New("rotation update requires a device id")
	}
	*resp = s.daemon.Devices().SetRotation(s.requestContext(req.RequestID), req.ID, req.Include)
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	history, err := s.daemon.Devices().History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	*resp = history
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait > hotplug.MaxWait {
		wait = hotplug.MaxWait
	}
	events, err := s.daemon.Events(s.ctx, req.Since, req.Limit, wait)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	*resp = events
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Quit(_ QuitRequest, resp *QuitResponse) error {
	s.logger.Info("quit requested via IPC",
		logging.String(logging.FieldEventType, "ipc_quit"))
	s.daemon.Quit()
	resp.Stopping = true
	return nil
}
