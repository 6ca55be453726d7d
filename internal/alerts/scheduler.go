package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/PatelGH0512/stocklabs/internal/events"
)

// Scheduler drives the evaluator from two trigger surfaces: a fixed-interval
// timer sweeping the active alert set, and alert-created events from the bus
// for immediate evaluation of new alerts. Both route into the same Run.
type Scheduler struct {
	evaluator *Evaluator
	bus       *events.Bus
	interval  time.Duration
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler for the evaluator.
func NewScheduler(evaluator *Evaluator, bus *events.Bus, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		evaluator: evaluator,
		bus:       bus,
		interval:  interval,
		logger:    logger,
	}
}

// Start launches the scheduling loop. It returns immediately; the loop stops
// when the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	stream, unsub := s.bus.Subscribe(events.EventAlertCreated, 50)

	go func() {
		defer unsub()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx, Trigger{})
			case payload, ok := <-stream:
				if !ok {
					return
				}
				created, ok := payload.(events.AlertCreated)
				if !ok {
					s.logger.Warn().Msg("unexpected payload on alert.created")
					continue
				}
				s.run(ctx, Trigger{AlertID: created.AlertID})
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context, trigger Trigger) {
	summary, err := s.evaluator.Run(ctx, trigger)
	if err != nil {
		s.logger.Error().Err(err).Str("alert_id", trigger.AlertID).Msg("alert evaluation run failed")
		return
	}
	s.logger.Debug().
		Int("checked", summary.Checked).
		Int("triggered", summary.Triggered).
		Str("alert_id", trigger.AlertID).
		Msg("alert evaluation run complete")
}
