package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"bookline/pkg/auth"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize   = 8 << 10
	malformedMessage = "malformed message"
)

var (
	ErrClientClosed   = errors.New("ws: client closed")
	ErrSendBufferFull = errors.New("ws: send buffer full")
)

// Client is one live WebSocket connection. Reads happen on the handshake
// goroutine, writes on a dedicated goroutine draining send.
type Client struct {
	id        string
	principal auth.Principal
	conn      *websocket.Conn
	server    *Server
	log       *logger.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	handlers  sync.WaitGroup
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.principal.UserID }

// Send queues an event without blocking. A slow client loses the event.
func (c *Client) Send(event string, data any) error {
	return c.enqueue(outbound{Event: event, Data: data})
}

func (c *Client) enqueue(msg outbound) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		c.log.Warn("Dropping message for slow client", "event", msg.Event)
		return ErrSendBufferFull
	}
}

// close is safe to call from any goroutine and any number of times.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		c.server.registry.Unregister(c)
		c.server.forget(c)
		_ = c.conn.Close()
		c.log.Info("WebSocket client disconnected")
	})
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.handlers.Wait()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.server.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.server.opts.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			_ = c.Send(EventError, errorPayload{Message: malformedMessage})
			continue
		}

		c.handlers.Add(1)
		go func() {
			defer c.handlers.Done()
			c.handle(env)
		}()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.server.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) handle(env Envelope) {
	switch env.Event {
	case EventPing:
		c.reply(EventPong, env.ID, pongPayload{Pong: time.Now().UnixMilli()})

	case EventMarkAsRead:
		var req markAsReadRequest
		if err := decodeData(env.Data, &req); err != nil || req.NotificationID == "" {
			c.reply(EventMarkAsRead, env.ID, reply{Error: "notificationId is required"})
			return
		}
		n, err := c.server.notifications.MarkAsRead(c.ctx, c.UserID(), req.NotificationID)
		if err != nil {
			c.reply(EventMarkAsRead, env.ID, reply{Error: errorMessage(err)})
			return
		}
		c.reply(EventMarkAsRead, env.ID, reply{Success: true, Notification: n})

	case EventGetNotifications:
		var req getNotificationsRequest
		if err := decodeData(env.Data, &req); err != nil {
			c.reply(EventGetNotifications, env.ID, reply{Error: malformedMessage})
			return
		}
		list, total, err := c.server.notifications.ListForUser(c.ctx, c.UserID(), req.Limit, req.Offset)
		if err != nil {
			c.reply(EventGetNotifications, env.ID, reply{Error: errorMessage(err)})
			return
		}
		c.reply(EventGetNotifications, env.ID, reply{Success: true, Notifications: list, Total: &total})

	case EventGetUnreadCount:
		count, err := c.server.notifications.UnreadCount(c.ctx, c.UserID())
		if err != nil {
			c.reply(EventGetUnreadCount, env.ID, reply{Error: errorMessage(err)})
			return
		}
		c.reply(EventGetUnreadCount, env.ID, reply{Success: true, Count: &count})

	default:
		c.reply(EventError, env.ID, errorPayload{Message: "unknown event: " + env.Event})
	}
}

func (c *Client) reply(event, id string, data any) {
	if err := c.enqueue(outbound{Event: event, ID: id, Data: data}); err != nil && !errors.Is(err, ErrClientClosed) {
		c.log.Warn("Failed to queue reply", "event", event, "error", err)
	}
}

func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func errorMessage(err error) string {
	if appErr := apperrors.AsAppError(err); appErr != nil && appErr.Code != apperrors.CodeInternal {
		return appErr.Message
	}
	return "internal error"
}
