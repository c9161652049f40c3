package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestBroadcastEventReachesClient(t *testing.T) {
	h := startHub(t)
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, h, 1)

	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := h.BroadcastEvent(EventReading, 0.2, ts); err != nil {
		t.Fatalf("BroadcastEvent failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("malformed event %q: %v", data, err)
	}
	if event.Type != EventReading || event.Value != 0.2 {
		t.Errorf("event = %+v, want reading 0.2", event)
	}
	if !event.Time.Equal(ts) {
		t.Errorf("event time = %v, want %v", event.Time, ts)
	}
}

func TestBroadcastToMultipleClients(t *testing.T) {
	h := startHub(t)
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer server.Close()

	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, h, 2)

	if err := h.BroadcastEvent(EventThreshold, 0.8, time.Now()); err != nil {
		t.Fatalf("BroadcastEvent failed: %v", err)
	}

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d ReadMessage failed: %v", i, err)
		}
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("client %d malformed event: %v", i, err)
		}
		if event.Type != EventThreshold {
			t.Errorf("client %d event type = %q, want threshold", i, event.Type)
		}
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	h := startHub(t)
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}

func TestStopDisconnectsClients(t *testing.T) {
	h := New()
	go h.Run()
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, h, 1)

	h.Stop()

	// The hub closes the send channel, which makes the write pump send a
	// close frame.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
