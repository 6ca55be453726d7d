package utils

import (
	"fmt"
	"time"
)

// FormatPrice formats a dollar price for display.
func FormatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// FormatPercent formats a percent change with one decimal place.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatTimestamp formats a notification timestamp, e.g. "1/2/2026, 03:04 PM".
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d, %s", t.Month(), t.Day(), t.Year(), t.Format("03:04 PM"))
}
