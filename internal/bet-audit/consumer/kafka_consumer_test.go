package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

type memStore struct {
	rows map[[2]any]Transition
	err  error
}

func newMemStore() *memStore { return &memStore{rows: map[[2]any]Transition{}} }

func (s *memStore) Record(_ context.Context, t Transition) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	k := [2]any{t.BetID, t.NewStatus}
	if _, ok := s.rows[k]; ok {
		return false, nil
	}
	s.rows[k] = t
	return true, nil
}

func msg(t *testing.T, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: b, Time: time.Date(2025, 8, 16, 12, 0, 0, 0, time.UTC)}
}

func TestDecodeTransitions(t *testing.T) {
	ts := time.Date(2025, 8, 16, 17, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		kind     Kind
		event    any
		wantFrom string
		wantTo   string
		reason   string
	}{
		{
			name: "placed",
			kind: KindPlaced,
			event: events.BetPlaced{
				BetID: 7, BettorID: 3, MatchID: 537785, RunnerName: "Liverpool",
				BackOrLay: "BACK", BetAmount: "10.00", SelectionOdds: "2.5", TsUnixMs: ts.UnixMilli(),
			},
			wantTo: "PLACED",
			reason: "BACK Liverpool @ 2.5 stake 10.00",
		},
		{
			name:     "cancelled",
			kind:     KindCancelled,
			event:    events.BetCancelled{BetID: 7, BettorID: 3, Ts: ts},
			wantFrom: "PLACED",
			wantTo:   "CANCELLED",
			reason:   "cancelled by bettor 3",
		},
		{
			name: "settled",
			kind: KindSettled,
			event: events.BetSettled{
				BetID: 7, BettorID: 3, RunnerOutcome: "Home win", BetWon: true, ReturnedAmount: "15.0000", Ts: ts,
			},
			wantFrom: "PLACED",
			wantTo:   "SETTLED",
			reason:   "won (Home win) returned 15.0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := msg(t, tt.event)
			got, err := Decode(tt.kind, m.Value, m.Time)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.BetID != 7 || got.OldStatus != tt.wantFrom || got.NewStatus != tt.wantTo {
				t.Fatalf("unexpected transition %+v", got)
			}
			if got.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", got.Reason, tt.reason)
			}
			if !got.At.Equal(ts) {
				t.Fatalf("at = %v, want %v", got.At, ts)
			}
		})
	}
}

func TestDecodeFallsBackToMessageTime(t *testing.T) {
	m := msg(t, events.BetCancelled{BetID: 9, BettorID: 1})
	got, err := Decode(KindCancelled, m.Value, m.Time)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.At.Equal(m.Time) {
		t.Fatalf("expected message time, got %v", got.At)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	if _, err := Decode(KindPlaced, []byte(`{"bettor_id":1}`), time.Now()); !errors.Is(err, ErrIncompleteEvent) {
		t.Fatalf("expected ErrIncompleteEvent, got %v", err)
	}
	if _, err := Decode(KindSettled, []byte(`not-json`), time.Now()); err == nil {
		t.Fatal("expected json error")
	}
	if _, err := Decode(Kind("bet_confirmed"), []byte(`{}`), time.Now()); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestHandleIsIdempotent(t *testing.T) {
	store := newMemStore()
	var recorded, dup int
	c := &Consumer{
		Log:         zap.NewNop(),
		Kind:        KindSettled,
		Store:       store,
		OnRecorded:  func(Kind) { recorded++ },
		OnDuplicate: func(Kind) { dup++ },
	}
	m := msg(t, events.BetSettled{BetID: 11, RunnerOutcome: "Draw", ReturnedAmount: "-10.00"})

	for i := 0; i < 2; i++ {
		if err := c.Handle(context.Background(), m); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if recorded != 1 || dup != 1 {
		t.Fatalf("recorded=%d dup=%d", recorded, dup)
	}
	row := store.rows[[2]any{int64(11), "SETTLED"}]
	if !strings.HasPrefix(row.Reason, "lost") {
		t.Fatalf("unexpected reason %q", row.Reason)
	}
}

func TestHandleDropsUndecodableAndRetriesStoreErrors(t *testing.T) {
	store := newMemStore()
	var stages []string
	c := &Consumer{
		Log:     zap.NewNop(),
		Kind:    KindPlaced,
		Store:   store,
		OnError: func(_ Kind, stage string) { stages = append(stages, stage) },
	}

	if err := c.Handle(context.Background(), kafka.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("invalid message must be dropped, got %v", err)
	}
	if len(stages) != 1 || stages[0] != "decode" {
		t.Fatalf("stages = %v", stages)
	}

	store.err = errors.New("db down")
	if err := c.Handle(context.Background(), msg(t, events.BetPlaced{BetID: 1})); err == nil {
		t.Fatal("store error must be returned so the message is not committed")
	}
}
