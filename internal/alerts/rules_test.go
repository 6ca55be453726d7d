package alerts

import (
	"testing"
	"time"

	"github.com/PatelGH0512/stocklabs/internal/models"
)

func TestIsHit(t *testing.T) {
	tests := []struct {
		name      string
		condition models.AlertCondition
		current   float64
		target    float64
		want      bool
	}{
		{"above boundary inclusive", models.ConditionAbove, 240.60, 240.60, true},
		{"above over target", models.ConditionAbove, 241.00, 240.60, true},
		{"above under target", models.ConditionAbove, 239.00, 240.60, false},
		{"below boundary inclusive", models.ConditionBelow, 240.60, 240.60, true},
		{"below under target", models.ConditionBelow, 239.00, 240.60, true},
		{"below over target", models.ConditionBelow, 241.00, 240.60, false},
		{"equal exact", models.ConditionEqual, 100.00, 100.00, true},
		{"equal within tolerance", models.ConditionEqual, 100.01, 100.00, true},
		{"equal within tolerance low side", models.ConditionEqual, 99.99, 100.00, true},
		{"equal outside tolerance", models.ConditionEqual, 100.011, 100.00, false},
		{"unknown condition", models.AlertCondition("bogus"), 100, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHit(tt.condition, tt.current, tt.target); got != tt.want {
				t.Errorf("IsHit(%s, %v, %v) = %v, want %v", tt.condition, tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestShouldThrottle(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)

	ts := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name  string
		alert models.Alert
		want  bool
	}{
		{
			name:  "never fired is never throttled",
			alert: models.Alert{Frequency: models.FrequencyDaily},
			want:  false,
		},
		{
			name:  "daily same calendar day",
			alert: models.Alert{Frequency: models.FrequencyDaily, LastTriggered: ts(now.Add(-2 * time.Hour))},
			want:  true,
		},
		{
			name: "daily yesterday fires again",
			// 23h ago but a different calendar date: not a rolling window.
			alert: models.Alert{Frequency: models.FrequencyDaily, LastTriggered: ts(time.Date(2026, 3, 9, 15, 0, 0, 0, time.Local))},
			want:  false,
		},
		{
			name:  "realtime 10 minutes ago",
			alert: models.Alert{Frequency: models.FrequencyRealtime, LastTriggered: ts(now.Add(-10 * time.Minute))},
			want:  true,
		},
		{
			name:  "realtime 20 minutes ago",
			alert: models.Alert{Frequency: models.FrequencyRealtime, LastTriggered: ts(now.Add(-20 * time.Minute))},
			want:  false,
		},
		{
			name:  "once already triggered is terminal",
			alert: models.Alert{Frequency: models.FrequencyOnce, Triggered: true},
			want:  true,
		},
		{
			name:  "once not yet triggered",
			alert: models.Alert{Frequency: models.FrequencyOnce, Triggered: false, LastTriggered: ts(now.Add(-time.Minute))},
			want:  false,
		},
		{
			name:  "hourly 30 minutes ago",
			alert: models.Alert{Frequency: models.FrequencyHourly, LastTriggered: ts(now.Add(-30 * time.Minute))},
			want:  true,
		},
		{
			name:  "hourly 2 hours ago",
			alert: models.Alert{Frequency: models.FrequencyHourly, LastTriggered: ts(now.Add(-2 * time.Hour))},
			want:  false,
		},
		{
			name:  "weekly 3 days ago",
			alert: models.Alert{Frequency: models.FrequencyWeekly, LastTriggered: ts(now.AddDate(0, 0, -3))},
			want:  true,
		},
		{
			name:  "weekly 8 days ago",
			alert: models.Alert{Frequency: models.FrequencyWeekly, LastTriggered: ts(now.AddDate(0, 0, -8))},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldThrottle(&tt.alert, now); got != tt.want {
				t.Errorf("ShouldThrottle(%+v) = %v, want %v", tt.alert, got, tt.want)
			}
		})
	}
}
