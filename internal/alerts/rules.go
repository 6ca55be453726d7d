// Package alerts implements price alert evaluation: hit detection,
// per-frequency notification throttling, and the periodic evaluation job.
package alerts

import (
	"math"
	"time"

	"github.com/PatelGH0512/stocklabs/internal/models"
)

// EqualTolerance is the absolute band for "equal" conditions. A fixed dollar
// tolerance absorbs float rounding; it is not a percentage band.
const EqualTolerance = 0.01

// RealtimeWindow is the minimum gap between notifications for realtime alerts.
const RealtimeWindow = 15 * time.Minute

// HourlyWindow is the minimum gap between notifications for hourly alerts.
const HourlyWindow = time.Hour

// WeeklyWindow is the minimum gap between notifications for weekly alerts.
const WeeklyWindow = 7 * 24 * time.Hour

// IsHit reports whether the current price satisfies the alert condition.
// Both above and below are boundary inclusive.
func IsHit(condition models.AlertCondition, current, target float64) bool {
	switch condition {
	case models.ConditionAbove:
		return current >= target
	case models.ConditionBelow:
		return current <= target
	case models.ConditionEqual:
		return math.Abs(current-target) <= EqualTolerance
	default:
		return false
	}
}

// ShouldThrottle reports whether a hit alert must be suppressed because it
// notified too recently for its frequency.
//
// Daily compares local calendar dates, not a rolling 24h window. Once is
// terminal after the first fire. Hourly and weekly use rolling windows
// symmetric with realtime.
func ShouldThrottle(alert *models.Alert, now time.Time) bool {
	if alert.Frequency == models.FrequencyOnce {
		return alert.Triggered
	}

	last := alert.LastTriggered
	if last == nil {
		return false
	}

	switch alert.Frequency {
	case models.FrequencyDaily:
		ly, lm, ld := last.Local().Date()
		ny, nm, nd := now.Local().Date()
		return ly == ny && lm == nm && ld == nd
	case models.FrequencyRealtime:
		return now.Sub(*last) < RealtimeWindow
	case models.FrequencyHourly:
		return now.Sub(*last) < HourlyWindow
	case models.FrequencyWeekly:
		return now.Sub(*last) < WeeklyWindow
	default:
		return false
	}
}
