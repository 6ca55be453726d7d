// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotConfigured   = errors.New("service not configured")
	ErrAlertNotFound   = errors.New("alert not found")
	ErrHoldingNotFound = errors.New("holding not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrRateLimited     = errors.New("rate limited")
	ErrTimeout         = errors.New("operation timed out")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDatabaseError   = errors.New("database error")
	ErrInputValidation = errors.New("input validation failed")
)

// MarketError represents an error from the market data provider.
type MarketError struct {
	Status int
	Symbol string
	Err    error
}

func (e *MarketError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("market error [%d] %s: %v", e.Status, e.Symbol, e.Err)
	}
	return fmt.Sprintf("market error [%d]: %v", e.Status, e.Err)
}

func (e *MarketError) Unwrap() error {
	return e.Err
}

// NewMarketError creates a new MarketError.
func NewMarketError(status int, symbol string, err error) *MarketError {
	return &MarketError{Status: status, Symbol: symbol, Err: err}
}

// DeliveryError represents a notification delivery failure. The alert engine
// treats it as recoverable and skips the state update for the affected alert.
type DeliveryError struct {
	Channel   string
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error [%s] to %s: %v", e.Channel, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(channel, recipient string, err error) *DeliveryError {
	return &DeliveryError{Channel: channel, Recipient: recipient, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
