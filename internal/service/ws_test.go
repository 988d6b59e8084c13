package service

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
)

func TestHub_BroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration happens in the upgrade handler before ServeHTTP returns,
	// but give the server goroutine a moment on slow machines.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}

	sent := &domain.PoolEvent{
		PoolID:        "pool1",
		EventType:     domain.EventDeposit,
		Account:       "alice",
		ReserveAmount: 100_000,
		Units:         1_000_000,
		ReserveAfter:  1_100_000,
		UnitsAfter:    1_010_000,
		Timestamp:     time.Now().UnixMilli(),
	}
	hub.Broadcast(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got domain.PoolEvent
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PoolID != sent.PoolID || got.EventType != sent.EventType || got.ReserveAfter != sent.ReserveAfter {
		t.Fatalf("received %+v, want %+v", got, sent)
	}
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("client count = %d after close, want 0", hub.ClientCount())
	}
}
