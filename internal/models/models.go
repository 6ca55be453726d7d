// Package models defines the core domain types for the stocklabs service.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// AlertCondition is the comparison between the current price and the target.
type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
	ConditionEqual AlertCondition = "equal"
)

// AlertFrequency controls how often a hit alert may re-notify.
type AlertFrequency string

const (
	FrequencyOnce     AlertFrequency = "once"
	FrequencyHourly   AlertFrequency = "hourly"
	FrequencyDaily    AlertFrequency = "daily"
	FrequencyWeekly   AlertFrequency = "weekly"
	FrequencyRealtime AlertFrequency = "realtime"
)

// Alert is a user's standing instruction to be notified when a symbol's
// price crosses a threshold.
type Alert struct {
	ID            string
	UserID        string
	Symbol        string
	Company       string
	Condition     AlertCondition
	Value         float64
	Frequency     AlertFrequency
	Active        bool
	Triggered     bool
	LastTriggered *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the alert's invariants before it is persisted.
func (a *Alert) Validate() error {
	if strings.TrimSpace(a.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if math.IsInf(a.Value, 0) || math.IsNaN(a.Value) || a.Value <= 0 {
		return fmt.Errorf("value must be a finite positive number, got %v", a.Value)
	}
	switch a.Condition {
	case ConditionAbove, ConditionBelow, ConditionEqual:
	default:
		return fmt.Errorf("unknown condition %q", a.Condition)
	}
	switch a.Frequency {
	case FrequencyOnce, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyRealtime:
	default:
		return fmt.Errorf("unknown frequency %q", a.Frequency)
	}
	return nil
}

// NormalizeSymbol canonicalizes a ticker for storage and lookup.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Quote is a point-in-time price reading for a symbol. It is supplied by the
// market data source at evaluation time and never persisted.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Current       float64 `json:"current"`
	PreviousClose float64 `json:"previousClose"`
}

// ChangePercent returns the percent change versus the previous close.
func (q Quote) ChangePercent() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return (q.Current - q.PreviousClose) / q.PreviousClose * 100
}

// Holding is a position in a user's portfolio.
type Holding struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Symbol       string    `json:"symbol"`
	Company      string    `json:"company"`
	Shares       float64   `json:"shares"`
	BuyPrice     float64   `json:"buyPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks the holding's constraints before it is persisted.
func (h *Holding) Validate() error {
	if strings.TrimSpace(h.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(h.Company) == "" {
		return fmt.Errorf("company is required")
	}
	if h.Shares < 0 {
		return fmt.Errorf("shares must be non-negative, got %v", h.Shares)
	}
	if h.BuyPrice < 0 {
		return fmt.Errorf("buy price must be non-negative, got %v", h.BuyPrice)
	}
	return nil
}

// WatchlistItem is a symbol a user tracks on their dashboard.
type WatchlistItem struct {
	UserID  string    `json:"-"`
	Symbol  string    `json:"symbol"`
	Company string    `json:"company"`
	AddedAt time.Time `json:"addedAt"`
}

// User is a directory entry used to resolve notification recipients.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewsArticle is a normalized news item from the market data source.
type NewsArticle struct {
	ID       int64     `json:"id"`
	Symbol   string    `json:"symbol,omitempty"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary"`
	Source   string    `json:"source"`
	URL      string    `json:"url"`
	Datetime time.Time `json:"datetime"`
}

// SearchResult is one entry from a symbol search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// PerformanceItem is a symbol's percent change over a reporting period.
type PerformanceItem struct {
	Symbol    string  `json:"symbol"`
	ChangePct float64 `json:"changePct"`
}
