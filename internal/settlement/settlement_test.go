package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/epl-bet-ledger/internal/ledger"
	"github.com/radieske/epl-bet-ledger/pkg/contracts/events"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type fakeFixtures struct{ byID map[int64]ledger.Fixture }

func (f fakeFixtures) FinishedFixtures(context.Context) ([]ledger.Fixture, error) { return nil, nil }

func (f fakeFixtures) GetFixture(_ context.Context, id int64) (ledger.Fixture, error) {
	fx, ok := f.byID[id]
	if !ok {
		return ledger.Fixture{}, ledger.ErrFixtureNotFound
	}
	return fx, nil
}

type fakeResolver struct {
	got []int64
	err error
}

func (r *fakeResolver) ResolveFixture(_ context.Context, f ledger.Fixture) (ledger.MatchReport, error) {
	r.got = append(r.got, f.MatchID)
	return ledger.MatchReport{MatchID: f.MatchID}, r.err
}

func intp(i int) *int { return &i }

func resultMsg(t *testing.T, ev events.FixtureResult) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: b}
}

func newConsumer(res *fakeResolver, dlq *fakeWriter) *Consumer {
	return &Consumer{
		Log: zap.NewNop(),
		Fixtures: fakeFixtures{byID: map[int64]ledger.Fixture{
			1: {MatchID: 1, Status: ledger.FixtureFinished, HomeScore: intp(2), AwayScore: intp(1)},
		}},
		Engine: res,
		DLQ:    dlq,
	}
}

func TestConsumerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("finished fixture is resolved", func(t *testing.T) {
		res := &fakeResolver{}
		c := newConsumer(res, &fakeWriter{})
		if err := c.handle(ctx, resultMsg(t, events.FixtureResult{MatchID: 1, Status: "FINISHED"})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.got) != 1 || res.got[0] != 1 {
			t.Fatalf("expected match 1 resolved, got %v", res.got)
		}
	})

	t.Run("other statuses are ignored", func(t *testing.T) {
		res := &fakeResolver{}
		c := newConsumer(res, &fakeWriter{})
		_ = c.handle(ctx, resultMsg(t, events.FixtureResult{MatchID: 1, Status: "IN_PLAY"}))
		if len(res.got) != 0 {
			t.Fatalf("in-play result must not settle")
		}
	})

	t.Run("bad payload goes to dlq", func(t *testing.T) {
		dlq := &fakeWriter{}
		c := newConsumer(&fakeResolver{}, dlq)
		if err := c.handle(ctx, kafka.Message{Key: []byte("1"), Value: []byte("{")}); err != nil {
			t.Fatalf("bad payload must be committed, got %v", err)
		}
		if len(dlq.msgs) != 1 || dlq.msgs[0].Headers[0].Key != "error" {
			t.Fatalf("expected one dlq message with error header, got %+v", dlq.msgs)
		}
	})

	t.Run("missing data is not retried", func(t *testing.T) {
		for _, e := range []error{ledger.ErrDataUnavailable, ledger.ErrMissingOddsForOutcome, ledger.ErrMissingScore, ledger.ErrSettlementInProgress} {
			c := newConsumer(&fakeResolver{err: e}, &fakeWriter{})
			if err := c.handle(ctx, resultMsg(t, events.FixtureResult{MatchID: 1, Status: "FINISHED"})); err != nil {
				t.Fatalf("%v: expected skip, got %v", e, err)
			}
		}
		c := newConsumer(&fakeResolver{}, &fakeWriter{})
		if err := c.handle(ctx, resultMsg(t, events.FixtureResult{MatchID: 99, Status: "FINISHED"})); err != nil {
			t.Fatalf("unknown fixture: expected skip, got %v", err)
		}
	})

	t.Run("store failure is retried", func(t *testing.T) {
		c := newConsumer(&fakeResolver{err: errors.New("tx aborted")}, &fakeWriter{})
		if err := c.handle(ctx, resultMsg(t, events.FixtureResult{MatchID: 1, Status: "FINISHED"})); err == nil {
			t.Fatalf("expected error so the message is not committed")
		}
	})
}

type scriptedReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func TestConsumerRun_CommitsHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptedReader{cancel: cancel, msgs: []kafka.Message{
		resultMsg(t, events.FixtureResult{MatchID: 1, Status: "FINISHED"}),
		{Value: []byte("not json")},
	}}
	consumed := 0
	c := newConsumer(&fakeResolver{}, &fakeWriter{})
	c.Reader = r
	c.OnConsumed = func() { consumed++ }

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if consumed != 2 || len(r.committed) != 2 {
		t.Fatalf("expected 2 consumed and committed, got %d/%d", consumed, len(r.committed))
	}
}

func TestPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	p.now = func() time.Time { return time.Date(2025, 8, 16, 17, 0, 0, 0, time.UTC) }

	ss := []ledger.Settlement{
		{BetID: 1, BettorID: 3, MatchID: 10, SelectionID: 11, Side: ledger.SideLay, Class: ledger.ClassLosingLay,
			RunnerOutcome: ledger.RunnerHomeWin, ReturnedAmount: decimal.RequireFromString("-20")},
		{BetID: 2, BettorID: 3, MatchID: 10, SelectionID: 11, Side: ledger.SideBack, Class: ledger.ClassWinningBack,
			RunnerOutcome: ledger.RunnerHomeWin, BetWon: true, ReturnedAmount: decimal.RequireFromString("25")},
	}
	if err := p.PublishSettlements(context.Background(), ss); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 2 || string(w.msgs[0].Key) != "10" {
		t.Fatalf("unexpected messages: %+v", w.msgs)
	}

	var ev events.BetSettled
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ReturnedAmount != "-20" || ev.BackOrLay != "LAY" || ev.BetWon || ev.RunnerOutcome != "Home win" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if err := p.PublishSettlements(context.Background(), nil); err != nil || len(w.msgs) != 2 {
		t.Fatalf("empty batch must be a no-op")
	}
}

type countingBatch struct {
	runs int
	err  error
}

func (c *countingBatch) ResolveAll(ctx context.Context) (ledger.BatchReport, error) {
	c.runs++
	if _, ok := ctx.Deadline(); !ok {
		return ledger.BatchReport{}, errors.New("expected a deadline")
	}
	return ledger.BatchReport{}, c.err
}

func TestSweeper(t *testing.T) {
	b := &countingBatch{}
	s := NewSweeper(zap.NewNop(), b, time.Minute)

	var runs []error
	s.OnRun = func(_ ledger.BatchReport, err error) { runs = append(runs, err) }

	s.RunOnce(context.Background())
	b.err = ledger.ErrDataUnavailable
	s.RunOnce(context.Background())

	if b.runs != 2 || runs[0] != nil || !errors.Is(runs[1], ledger.ErrDataUnavailable) {
		t.Fatalf("unexpected runs: %d %v", b.runs, runs)
	}

	if err := s.Schedule("not a schedule"); err == nil {
		t.Fatalf("expected invalid cron spec error")
	}
	if err := s.Schedule("@every 5m"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
}
