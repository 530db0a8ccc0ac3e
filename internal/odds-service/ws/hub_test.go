package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m map[string]any
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestHubSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	_ = a.WriteJSON(ClientMsg{Type: "subscribe", MatchID: 537785})
	_ = b.WriteJSON(ClientMsg{Type: "subscribe", MatchID: 1})
	if m := readType(t, a); m["type"] != "subscribed" {
		t.Fatalf("ack a = %v", m)
	}
	if m := readType(t, b); m["type"] != "subscribed" {
		t.Fatalf("ack b = %v", m)
	}

	hub.Broadcast(OddsUpdate{MatchID: 537785, Payload: json.RawMessage(`[{"selection_id":47999}]`)})

	m := readType(t, a)
	if m["type"] != "odds" || m["match_id"].(float64) != 537785 {
		t.Fatalf("update = %v", m)
	}

	// b não assina 537785: o próximo frame é o pong
	_ = b.WriteJSON(ClientMsg{Type: "ping"})
	if m := readType(t, b); m["type"] != "pong" {
		t.Fatalf("b got %v, want pong", m)
	}
}

func TestHubDropsClosedConnections(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	c := dial(t, srv)
	_ = c.WriteJSON(ClientMsg{Type: "subscribe", MatchID: 9})
	readType(t, c)
	if hub.Subscribers(9) != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers(9))
	}
	_ = c.Close()

	deadline := time.Now().Add(3 * time.Second)
	for hub.Subscribers(9) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Subscribers(9) != 0 {
		t.Error("closed connection still subscribed")
	}
}

func TestRedisSubscriberForwardsToHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	hub := NewHub(zap.NewNop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := StartRedisSubscriber(ctx, zap.NewNop(), rc, "odds_quotes_broadcast", hub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	c := dial(t, srv)
	_ = c.WriteJSON(ClientMsg{Type: "subscribe", MatchID: 42})
	readType(t, c)

	if err := rc.Publish(ctx, "odds_quotes_broadcast", `{"match_id":42,"payload":[]}`).Err(); err != nil {
		t.Fatal(err)
	}
	if m := readType(t, c); m["type"] != "odds" {
		t.Fatalf("got %v", m)
	}
}
