package feedsim

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

var now = time.Date(2025, 9, 12, 10, 0, 0, 0, time.UTC)

func TestGeneratorSnapshots(t *testing.T) {
	g := NewGenerator(DefaultCatalog(now), 42)
	g.Now = func() time.Time { return now }

	for round := 0; round < 20; round++ {
		quotes := g.Next()
		if len(quotes) != 4 {
			t.Fatalf("quotes = %d", len(quotes))
		}
		for _, q := range quotes {
			if !q.RequestTime.Equal(now) || q.Source != Source {
				t.Fatalf("header = %+v", q)
			}
			if len(q.Runners) != 3 {
				t.Fatalf("runners = %d", len(q.Runners))
			}
			types := map[string]bool{}
			for _, r := range q.Runners {
				types[r.RunnerType] = true
				if *r.BestBackPrice < 1.01 || *r.BestLayPrice <= *r.BestBackPrice {
					t.Fatalf("prices back=%v lay=%v", *r.BestBackPrice, *r.BestLayPrice)
				}
			}
			if !types["Home win"] || !types["Away win"] || !types["Draw"] {
				t.Fatalf("runner types = %v", types)
			}
			if q.Runners[0].RunnerName != q.HomeTeam || q.Runners[2].SelectionID != DrawSelectionID {
				t.Fatalf("runner order = %+v", q.Runners)
			}
		}
	}
}

func TestGeneratorIsDeterministicPerSeed(t *testing.T) {
	a := NewGenerator(DefaultCatalog(now), 7)
	b := NewGenerator(DefaultCatalog(now), 7)
	a.Now = func() time.Time { return now }
	b.Now = a.Now

	qa, qb := a.Next(), b.Next()
	for i := range qa {
		if *qa[i].Runners[0].BestBackPrice != *qb[i].Runners[0].BestBackPrice {
			t.Fatalf("same seed produced different prices")
		}
	}
}

func TestSelectionIDStable(t *testing.T) {
	if SelectionID("Arsenal") != SelectionID("Arsenal") {
		t.Fatal("selection id not stable")
	}
	if SelectionID("Arsenal") == SelectionID("Chelsea") {
		t.Fatal("selection ids collide")
	}
}

func TestDefaultCatalogKickoffInFuture(t *testing.T) {
	for _, m := range DefaultCatalog(now) {
		if !m.MatchDate.After(now) {
			t.Errorf("%s kickoff %v not after %v", m.EventID, m.MatchDate, now)
		}
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sent := make(chan struct{}, 4)
	hub.OnSent = func() { sent <- struct{}{} }
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("clients = %d", hub.Clients())
	}

	g := NewGenerator(DefaultCatalog(now), 1)
	hub.Broadcast(g.Next()[0])

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var q events.OddsQuote
	if err := conn.ReadJSON(&q); err != nil {
		t.Fatalf("read: %v", err)
	}
	if q.EventID != "SIM-1" || len(q.Runners) != 3 {
		t.Errorf("quote = %+v", q)
	}
	<-sent

	_ = conn.Close()
	deadline = time.Now().Add(3 * time.Second)
	for hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 0 {
		t.Error("client not removed after close")
	}
}
