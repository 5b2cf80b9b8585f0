// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestHandlerStreamsBroadcasts(t *testing.T) {
	hub := startHub(t)
	server := httptest.NewServer(Handler(hub, []string{"*"}))
	defer server.Close()

	conn, _, err := dial(t, server, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	hub.BroadcastJSON(MessageTypeAlertTriggered, map[string]string{"ruleId": "high_response_time"})
	msg := readMessage(t, conn)
	if msg.Type != MessageTypeAlertTriggered {
		t.Fatalf("type = %q", msg.Type)
	}
	data, ok := msg.Data.(map[string]any)
	if !ok || data["ruleId"] != "high_response_time" {
		t.Errorf("data = %#v", msg.Data)
	}

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if got := readMessage(t, conn); got.Type != MessageTypePong {
		t.Errorf("reply to ping = %q, want pong", got.Type)
	}
}

func TestHandlerClientDisconnectUnregisters(t *testing.T) {
	hub := startHub(t)
	server := httptest.NewServer(Handler(hub, []string{"*"}))
	defer server.Close()

	conn, _, err := dial(t, server, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	_ = conn.Close()
	waitFor(t, "client removal", func() bool { return hub.ClientCount() == 0 })
}

func TestHandlerOriginCheck(t *testing.T) {
	hub := startHub(t)
	server := httptest.NewServer(Handler(hub, []string{"https://dash.example.com"}))
	defer server.Close()

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", "https://dash.example.com", true},
		{"other origin", "https://evil.example.com", false},
		{"missing origin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dial(t, server, tt.origin)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatal("dial succeeded for a rejected origin")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}
