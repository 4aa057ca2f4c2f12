package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/homealone/internal/auth"
	"github.com/nerrad567/homealone/internal/infrastructure/config"
	"github.com/nerrad567/homealone/internal/infrastructure/logging"
)

var testWSConfig = config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}

func testHub() *Hub {
	return NewHub(testWSConfig, logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard))
}

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Dial() error = %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestWebSocket_SubscribeAndReceive(t *testing.T) {
	hub := testHub()
	srv := testServer(t, Deps{Hub: hub})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn := dialWS(t, ts, "")

	if err := conn.WriteJSON(WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{"relay.action"}}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMsg(t, conn); msg.Type != WSTypeResponse || msg.ID != "1" {
		t.Fatalf("subscribe reply = %+v", msg)
	}
	if n := hub.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}

	// Unsubscribed channels are not delivered; the next frame is the pong.
	hub.Broadcast("something.else", map[string]string{"x": "y"})
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "2"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMsg(t, conn); msg.Type != WSTypePong || msg.ID != "2" {
		t.Fatalf("ping reply = %+v", msg)
	}

	hub.Broadcast("relay.action", map[string]any{"relay": "3.4", "success": true})
	msg := readMsg(t, conn)
	if msg.Type != WSTypeEvent || msg.EventType != "relay.action" {
		t.Fatalf("event = %+v", msg)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok || payload["relay"] != "3.4" {
		t.Errorf("event payload = %#v", msg.Payload)
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypeUnsubscribe, ID: "3", Payload: WSSubscribePayload{Channels: []string{"relay.action"}}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMsg(t, conn); msg.Type != WSTypeResponse || msg.ID != "3" {
		t.Fatalf("unsubscribe reply = %+v", msg)
	}
}

func TestWebSocket_BadMessages(t *testing.T) {
	srv := testServer(t, Deps{Hub: testHub()})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn := dialWS(t, ts, "")

	tests := []struct {
		name  string
		frame string
	}{
		{"invalid json", `{`},
		{"unknown type", `{"type":"explode","id":"9"}`},
		{"subscribe without channels", `{"type":"subscribe","id":"10","payload":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}
			if msg := readMsg(t, conn); msg.Type != WSTypeError {
				t.Errorf("reply = %+v, want error", msg)
			}
		})
	}
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	hub := testHub()
	srv := testServer(t, Deps{Hub: hub})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn := dialWS(t, ts, "")
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	readMsg(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d after disconnect, want 0", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_TokenQuery(t *testing.T) {
	srv := testServer(t, Deps{
		Config: config.APIConfig{Auth: config.APIAuthConfig{JWTSecret: testSecret}},
		Hub:    testHub(),
	})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	tok, err := auth.GenerateToken("panel", auth.ScopeRead, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	conn := dialWS(t, ts, "?token="+tok)
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMsg(t, conn); msg.Type != WSTypePong {
		t.Errorf("reply = %+v, want pong", msg)
	}
}

func TestWebSocket_NoHub(t *testing.T) {
	srv := testServer(t, Deps{})
	w := do(t, srv, http.MethodGet, "/api/v1/ws", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHub_RunClosesClients(t *testing.T) {
	hub := testHub()
	srv := testServer(t, Deps{Hub: hub})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn := dialWS(t, ts, "")
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	readMsg(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d after Run, want 0", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after hub shutdown")
	}
}

func TestHub_RejectsClientsAfterShutdown(t *testing.T) {
	hub := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	client := &WSClient{hub: hub, send: make(chan []byte, 1), subscriptions: map[string]struct{}{}}
	if hub.Register(client) {
		t.Error("Register() = true after shutdown, want false")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}

	srv := testServer(t, Deps{Hub: hub})
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	conn := dialWS(t, ts, "")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection accepted after hub shutdown")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d after late connect, want 0", n)
	}
}
