// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/PatelGH0512/stocklabs/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Alerts
	SaveAlert(ctx context.Context, alert *models.Alert) error
	GetAlertByID(ctx context.Context, id string) (*models.Alert, error)
	GetAlertsByUser(ctx context.Context, userID string) ([]models.Alert, error)
	GetActiveAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	MarkAlertTriggered(ctx context.Context, id string, at time.Time, retire bool) (bool, error)
	DeleteAlert(ctx context.Context, id, userID string) error

	// Holdings
	SaveHolding(ctx context.Context, holding *models.Holding) error
	GetHoldings(ctx context.Context, userID string) ([]models.Holding, error)
	UpdateHolding(ctx context.Context, holding *models.Holding) error
	DeleteHolding(ctx context.Context, id, userID string) error

	// Watchlist
	AddToWatchlist(ctx context.Context, item *models.WatchlistItem) error
	RemoveFromWatchlist(ctx context.Context, userID, symbol string) error
	GetWatchlist(ctx context.Context, userID string) ([]models.WatchlistItem, error)

	// Users
	SaveUser(ctx context.Context, user *models.User) error
	GetUserEmail(ctx context.Context, userID string) (string, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Lifecycle
	Close() error
}
