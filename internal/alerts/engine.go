package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/PatelGH0512/stocklabs/internal/errors"
	"github.com/PatelGH0512/stocklabs/internal/logging"
	"github.com/PatelGH0512/stocklabs/internal/models"
	"github.com/PatelGH0512/stocklabs/internal/notify"
)

// Trigger is the payload that starts an evaluation run. An empty AlertID
// means a scheduled sweep over the active alert set.
type Trigger struct {
	AlertID string
}

// Summary reports what a run did. It is observability output, not input to
// further branching.
type Summary struct {
	Checked   int
	Triggered int
}

// QuoteSource is the evaluator's view of the market data client.
type QuoteSource interface {
	GetQuoteDetails(ctx context.Context, symbols []string) map[string]models.Quote
	Configured() bool
}

// AlertStore is the evaluator's view of persistence.
type AlertStore interface {
	GetAlertByID(ctx context.Context, id string) (*models.Alert, error)
	GetActiveAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	MarkAlertTriggered(ctx context.Context, id string, at time.Time, retire bool) (bool, error)
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// Evaluator runs the alert evaluation job. It carries no state between runs;
// idempotency comes from the per-alert throttle on last_triggered, backed by
// the store's conditional update, so two overlapping runs cannot double-fire
// the same alert.
type Evaluator struct {
	store      AlertStore
	quotes     QuoteSource
	notifier   notify.Notifier
	logger     zerolog.Logger
	batchLimit int
	now        func() time.Time
}

// NewEvaluator creates an alert evaluator.
func NewEvaluator(store AlertStore, quotes QuoteSource, notifier notify.Notifier, logger zerolog.Logger, batchLimit int) *Evaluator {
	return &Evaluator{
		store:      store,
		quotes:     quotes,
		notifier:   notifier,
		logger:     logger,
		batchLimit: batchLimit,
		now:        time.Now,
	}
}

// Run evaluates the candidate set for the trigger and returns a summary.
// Failures are isolated per alert: a missing quote, unresolvable owner, or
// failed delivery skips that alert and the batch continues. Configuration
// errors abort the run with a zero summary and a logged cause.
func (e *Evaluator) Run(ctx context.Context, trigger Trigger) (Summary, error) {
	if !e.quotes.Configured() {
		e.logger.Error().Msg("alert evaluation skipped: market client not configured")
		return Summary{}, nil
	}

	candidates, err := e.loadCandidates(ctx, trigger)
	if err != nil {
		return Summary{}, err
	}
	if len(candidates) == 0 {
		return Summary{}, nil
	}

	symbols := make([]string, 0, len(candidates))
	for _, a := range candidates {
		symbols = append(symbols, a.Symbol)
	}
	quotes := e.quotes.GetQuoteDetails(ctx, symbols)

	summary := Summary{Checked: len(candidates)}
	now := e.now()

	for i := range candidates {
		if ctx.Err() != nil {
			// Host timeout: remaining alerts are picked up by the next run.
			return summary, ctx.Err()
		}
		if e.evaluate(ctx, &candidates[i], quotes, now) {
			summary.Triggered++
		}
	}

	e.logger.Info().
		Int("checked", summary.Checked).
		Int("triggered", summary.Triggered).
		Msg("alert evaluation finished")
	return summary, nil
}

// loadCandidates fetches the candidate set: one record for an event trigger,
// otherwise up to batchLimit active alerts ordered oldest-first.
func (e *Evaluator) loadCandidates(ctx context.Context, trigger Trigger) ([]models.Alert, error) {
	if trigger.AlertID != "" {
		alert, err := e.store.GetAlertByID(ctx, trigger.AlertID)
		if apperrors.Is(err, apperrors.ErrAlertNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []models.Alert{*alert}, nil
	}
	return e.store.GetActiveAlerts(ctx, e.batchLimit)
}

// evaluate runs the decision, throttle, and side-effect steps for a single
// alert. It reports whether a notification was sent.
func (e *Evaluator) evaluate(ctx context.Context, alert *models.Alert, quotes map[string]models.Quote, now time.Time) bool {
	logger := logging.WithAlert(e.logger, alert.ID)

	if !alert.Active {
		return false
	}

	quote, ok := quotes[models.NormalizeSymbol(alert.Symbol)]
	if !ok {
		// No information, not a miss: leave the alert for the next run.
		logger.Debug().Str("symbol", alert.Symbol).Msg("no quote for symbol, skipping")
		return false
	}

	if !IsHit(alert.Condition, quote.Current, alert.Value) {
		return false
	}
	if ShouldThrottle(alert, now) {
		logger.Debug().Str("frequency", string(alert.Frequency)).Msg("hit throttled")
		return false
	}

	email, err := e.store.GetUserEmail(ctx, alert.UserID)
	if err != nil {
		logger.Debug().Err(err).Str("user_id", alert.UserID).Msg("owner email unresolved, skipping")
		return false
	}

	// Send before updating state: a transient delivery failure must stay
	// retryable, which matters most for once alerts where the triggered
	// flag is terminal.
	err = e.notifier.SendAlert(ctx, notify.AlertNotification{
		Email:        email,
		Symbol:       alert.Symbol,
		Company:      alert.Company,
		Condition:    alert.Condition,
		TargetPrice:  alert.Value,
		CurrentPrice: quote.Current,
		Timestamp:    now,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("notification delivery failed, state untouched for retry")
		return false
	}

	logging.LogAlertFired(e.logger, alert.ID, alert.Symbol, string(alert.Condition), alert.Value, quote.Current)

	retire := alert.Frequency == models.FrequencyOnce
	updated, err := e.store.MarkAlertTriggered(ctx, alert.ID, now, retire)
	if err != nil {
		// Notification went out but state did not advance. For once alerts
		// the throttle safety net is weaker here, so log it distinctly.
		logger.Error().Err(err).
			Bool("once", retire).
			Msg("inconsistency: notification sent but alert state update failed")
	} else if !updated {
		logger.Warn().Msg("alert state already advanced by a concurrent run")
	}

	return true
}
