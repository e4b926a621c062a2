//go:build integration

package testutil

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type WSMessage struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DialWS opens a realtime connection and consumes the connected event.
func DialWS(t *testing.T, serverURL, token string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("invalid server URL: %v", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("failed to dial realtime endpoint: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if msg := ReadWS(t, conn, 5*time.Second); msg.Event != "connected" {
		t.Fatalf("expected connected event, got %q", msg.Event)
	}
	return conn
}

func ReadWS(t *testing.T, conn *websocket.Conn, wait time.Duration) WSMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read realtime message: %v", err)
	}
	return msg
}

// ReadWSEvent skips messages until one with the given event arrives.
func ReadWSEvent(t *testing.T, conn *websocket.Conn, event string, wait time.Duration) WSMessage {
	t.Helper()
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		msg := ReadWS(t, conn, time.Until(deadline))
		if msg.Event == event {
			return msg
		}
	}
	t.Fatalf("no %q event within %s", event, wait)
	return WSMessage{}
}
