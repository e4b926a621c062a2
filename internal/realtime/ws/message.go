package ws

import "encoding/json"

// Inbound events.
const (
	EventMarkAsRead       = "markAsRead"
	EventGetNotifications = "getNotifications"
	EventGetUnreadCount   = "getUnreadCount"
	EventPing             = "ping"
)

// Outbound-only events.
const (
	EventPong  = "pong"
	EventError = "error"
)

// Envelope is the frame shape in both directions. ID, when a client sets it,
// is echoed on the reply.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type markAsReadRequest struct {
	NotificationID string `json:"notificationId"`
}

type getNotificationsRequest struct {
	Limit  int   `json:"limit,omitempty"`
	Offset int64 `json:"offset,omitempty"`
}

type reply struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	Notification  any    `json:"notification,omitempty"`
	Notifications any    `json:"notifications,omitempty"`
	Total         *int64 `json:"total,omitempty"`
	Count         *int64 `json:"count,omitempty"`
}

type connectedPayload struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type pongPayload struct {
	Pong int64 `json:"pong"`
}

type errorPayload struct {
	Message string `json:"message"`
}
