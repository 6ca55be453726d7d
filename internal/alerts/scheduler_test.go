package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/PatelGH0512/stocklabs/internal/events"
	"github.com/PatelGH0512/stocklabs/internal/models"
)

func TestSchedulerRunsOnAlertCreatedEvent(t *testing.T) {
	st := newFakeStore()
	st.alerts["a1"] = testAlert("a1")
	st.emails["user-1"] = "user@example.com"
	quotes := &fakeQuotes{configured: true, quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Current: 241.00},
	}}
	notifier := &fakeNotifier{}

	bus := events.NewBus()
	scheduler := NewScheduler(newTestEvaluator(st, quotes, notifier), bus, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)

	bus.Publish(events.EventAlertCreated, events.AlertCreated{AlertID: "a1", UserID: "user-1", Symbol: "AAPL"})

	deadline := time.After(2 * time.Second)
	for {
		notifier.mu.Lock()
		sent := len(notifier.sent)
		notifier.mu.Unlock()
		if sent == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("no notification after event, sent = %d", sent)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerTickerSweepsActiveSet(t *testing.T) {
	st := newFakeStore()
	st.alerts["a1"] = testAlert("a1")
	st.emails["user-1"] = "user@example.com"
	quotes := &fakeQuotes{configured: true, quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Current: 241.00},
	}}
	notifier := &fakeNotifier{}

	bus := events.NewBus()
	scheduler := NewScheduler(newTestEvaluator(st, quotes, notifier), bus, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)

	deadline := time.After(2 * time.Second)
	for {
		notifier.mu.Lock()
		sent := len(notifier.sent)
		notifier.mu.Unlock()
		if sent >= 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("ticker never drove an evaluation")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
