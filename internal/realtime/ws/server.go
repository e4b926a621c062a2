// Package ws serves the authenticated real-time notification channel.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bookline/internal/realtime/gate"
	"bookline/internal/realtime/presence"
	"bookline/pkg/auth"
	"bookline/pkg/config"
	apperrors "bookline/pkg/errors"
	httputil "bookline/pkg/http"
	"bookline/pkg/logger"
	"bookline/pkg/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Notifications is what connected clients may ask for.
type Notifications interface {
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*model.Notification, error)
}

type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SendBuffer:   cfg.WSSendBuffer,
		PingInterval: cfg.WSPingInterval,
		PongWait:     cfg.WSPongWait,
		WriteWait:    cfg.WSWriteWait,
	}
}

type Server struct {
	gate          auth.Authenticator
	registry      *presence.Registry
	notifications Notifications
	opts          Options
	upgrader      websocket.Upgrader
	log           *logger.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func NewServer(gate auth.Authenticator, registry *presence.Registry, notifications Notifications, opts Options, log *logger.Logger) *Server {
	return &Server{
		gate:          gate,
		registry:      registry,
		notifications: notifications,
		opts:          opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin; admission is by token.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*Client]struct{}),
	}
}

// ServeHTTP authenticates before upgrading, so a rejected handshake never
// reaches the presence registry.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := s.gate.Authenticate(gate.TokenFromRequest(r))
	if err != nil {
		s.log.Warn("WebSocket handshake rejected", "remote_addr", r.RemoteAddr, "error", err)
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Invalid or missing token")); writeErr != nil {
			s.log.Error("failed to write error response", "handler", "ServeWS", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "user_id", principal.UserID, "error", err)
		return
	}

	client := s.newClient(conn, principal)
	if !s.admit(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.opts.WriteWait))
		_ = conn.Close()
		return
	}

	client.log.Info("WebSocket client connected", "role", principal.Role)

	go client.writePump()
	_ = client.Send(presence.EventConnected, connectedPayload{
		UserID:    principal.UserID,
		Timestamp: time.Now().UnixMilli(),
	})
	client.readPump()
}

func (s *Server) newClient(conn *websocket.Conn, p *auth.Principal) *Client {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:        id,
		principal: *p,
		conn:      conn,
		server:    s,
		log:       s.log.With("connection_id", id, "user_id", p.UserID),
		send:      make(chan []byte, s.opts.SendBuffer),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// admit tracks c and registers it for pushes in one step under s.mu, so
// Shutdown either refuses c or sees it and unregisters it.
func (s *Server) admit(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	s.registry.Register(c.principal.UserID, c)
	return true
}

func (s *Server) forget(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// Shutdown sends a close frame to every client and disconnects it. New
// handshakes are refused afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.opts.WriteWait))
		c.close()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	s.log.Info("WebSocket clients closed", "count", len(clients))
	return nil
}

type presenceStats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
}

// Presence reports how many users and connections are online. Administrators only.
func (s *Server) Presence(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, "Presence", apperrors.Unauthorized("Authentication required"))
		return
	}
	if p.Role != model.RoleAdmin && !p.IsSuperAdmin() {
		s.writeError(w, "Presence", apperrors.Forbidden("Only administrators can view presence"))
		return
	}

	stats := presenceStats{
		Connections: s.registry.Size(),
		Users:       len(s.registry.Users()),
	}
	if err := httputil.WriteSuccess(w, stats); err != nil {
		s.log.Error("failed to write success response", "handler", "Presence", "operation", "WriteSuccess", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		s.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (s *Server) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/presence", s.Presence)
}
