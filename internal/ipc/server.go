package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/daemon"
	"reeldesk/internal/logging"
	"reeldesk/internal/store"
)

// ServiceName is the RPC receiver name clients call methods on.
const ServiceName = "Reeldesk"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
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

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
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
					logging.Impact("CLI commands may fail to reach the daemon"),
					logging.ErrorHint("check socket permissions and restart the daemon if needed"))
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

// Close stops the server and removes the socket file.
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
			logging.Impact("stale IPC socket may block future starts"),
			logging.ErrorHint("remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (a Actor) identity() (auth.Identity, error) {
	id := strings.TrimSpace(a.StaffID)
	if id == "" {
		return auth.Identity{}, errors.New("staff id is required")
	}
	return auth.Identity{UserID: id, Role: auth.RoleStaff, Name: strings.TrimSpace(a.StaffName)}, nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).ToAPI()
	return nil
}

func (s *service) RoomList(req RoomListRequest, resp *RoomListResponse) error {
	coord := s.daemon.Coordinator()
	var (
		rooms []*store.Room
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(req.View)) {
	case "", "unclaimed":
		rooms, err = coord.ListUnclaimedActive(s.ctx)
	case "mine":
		actor, aerr := req.identity()
		if aerr != nil {
			return aerr
		}
		rooms, err = coord.ListClaimedByStaff(s.ctx, actor.UserID)
	case "all":
		rooms, err = s.daemon.Store().ListRooms(s.ctx, store.RoomFilter{})
	default:
		return fmt.Errorf("unknown room view %q", req.View)
	}
	if err != nil {
		return err
	}
	resp.Rooms = api.FromRooms(rooms)
	return nil
}

// RoomDescribe reads a room without participant checks; the socket is only
// reachable by the operator running the daemon.
func (s *service) RoomDescribe(req RoomDescribeRequest, resp *RoomDescribeResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("room id is required")
	}
	room, err := s.daemon.Store().GetRoom(s.ctx, id)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %s not found", id)
	}
	msgs, err := s.daemon.Store().ListMessages(s.ctx, id)
	if err != nil {
		return err
	}
	resp.Room = api.FromRoom(room)
	resp.Messages = api.FromMessages(msgs)
	return nil
}

func (s *service) Claim(req ClaimRequest, resp *ClaimResponse) error {
	actor, err := req.identity()
	if err != nil {
		return err
	}
	res, err := s.daemon.Coordinator().Claim(s.ctx, req.ID, actor)
	if err != nil {
		return err
	}
	resp.Claimed = res.Claimed
	resp.Room = api.FromRoom(res.Room)
	s.logger.Info("room claim via IPC",
		logging.EventType("ipc_claim"),
		logging.RoomID(req.ID),
		logging.UserID(actor.UserID),
		logging.Bool("claimed", res.Claimed))
	return nil
}

func (s *service) Close(req CloseRequest, resp *CloseResponse) error {
	actor, err := req.identity()
	if err != nil {
		return err
	}
	closed, err := s.daemon.Coordinator().Close(s.ctx, req.ID, actor)
	if err != nil {
		return err
	}
	resp.Closed = closed
	return nil
}

func (s *service) Post(req PostRequest, resp *PostResponse) error {
	actor, err := req.identity()
	if err != nil {
		return err
	}
	msg, err := s.daemon.Coordinator().Post(s.ctx, req.ID, actor, req.Content)
	if err != nil {
		return err
	}
	resp.Message = api.FromMessage(msg)
	return nil
}

func (s *service) NotificationList(req NotificationListRequest, resp *NotificationListResponse) error {
	items, err := s.daemon.Store().ListNotifications(s.ctx, store.AudienceStaff, req.UnreadOnly, req.Limit)
	if err != nil {
		return err
	}
	resp.Notifications = api.FromNotifications(items)
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.Store().CheckHealth(s.ctx)
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.MissingTables = append(resp.MissingTables, health.MissingTables...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.Error = health.Error
	if err != nil && health.Error == "" {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
