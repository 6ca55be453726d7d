package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/PatelGH0512/stocklabs/internal/errors"
	"github.com/PatelGH0512/stocklabs/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Price alerts
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		company TEXT NOT NULL,
		condition TEXT NOT NULL,
		value REAL NOT NULL,
		frequency TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		triggered INTEGER NOT NULL DEFAULT 0,
		last_triggered DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id, symbol);
	CREATE INDEX IF NOT EXISTS idx_alerts_active ON alerts(active, symbol);

	-- Portfolio holdings
	CREATE TABLE IF NOT EXISTS holdings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		company TEXT NOT NULL,
		shares REAL NOT NULL,
		buy_price REAL NOT NULL,
		current_price REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id, symbol);

	-- Watchlist
	CREATE TABLE IF NOT EXISTS watchlist (
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, symbol)
	);

	-- User directory for notification routing
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveAlert inserts a new alert.
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *models.Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, user_id, symbol, company, condition, value, frequency, active, triggered, last_triggered, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.UserID, alert.Symbol, alert.Company, string(alert.Condition),
		alert.Value, string(alert.Frequency), boolToInt(alert.Active), boolToInt(alert.Triggered),
		nullableTime(alert.LastTriggered), alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving alert: %w", err)
	}
	return nil
}

const alertColumns = `id, user_id, symbol, company, condition, value, frequency, active, triggered, last_triggered, created_at, updated_at`

// GetAlertByID returns a single alert or ErrAlertNotFound.
func (s *SQLiteStore) GetAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying alert: %w", err)
	}
	return alert, nil
}

// GetAlertsByUser returns all alerts owned by the user, newest first.
func (s *SQLiteStore) GetAlertsByUser(ctx context.Context, userID string) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// GetActiveAlerts returns up to limit active alerts, oldest first so that
// reevaluation stays fair across runs.
func (s *SQLiteStore) GetActiveAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE active = 1 ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying active alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// MarkAlertTriggered advances last_triggered, and when retire is set also
// flips the alert inactive and terminally triggered. The update is
// conditional on last_triggered not having moved past the given time by a
// concurrent run; it reports whether a row was updated.
func (s *SQLiteStore) MarkAlertTriggered(ctx context.Context, id string, at time.Time, retire bool) (bool, error) {
	var res sql.Result
	var err error
	if retire {
		res, err = s.db.ExecContext(ctx, `
			UPDATE alerts SET last_triggered = ?, active = 0, triggered = 1, updated_at = ?
			WHERE id = ? AND (last_triggered IS NULL OR last_triggered < ?)`,
			at, at, id, at)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE alerts SET last_triggered = ?, updated_at = ?
			WHERE id = ? AND (last_triggered IS NULL OR last_triggered < ?)`,
			at, at, id, at)
	}
	if err != nil {
		return false, fmt.Errorf("updating alert %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating alert %s: %w", id, err)
	}
	return n > 0, nil
}

// DeleteAlert removes an alert scoped to its owner.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// SaveHolding inserts a new holding.
func (s *SQLiteStore) SaveHolding(ctx context.Context, holding *models.Holding) error {
	if err := holding.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (id, user_id, symbol, company, shares, buy_price, current_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		holding.ID, holding.UserID, holding.Symbol, holding.Company,
		holding.Shares, holding.BuyPrice, holding.CurrentPrice, holding.CreatedAt, holding.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving holding: %w", err)
	}
	return nil
}

// GetHoldings returns the user's holdings, most recently updated first.
func (s *SQLiteStore) GetHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, company, shares, buy_price, current_price, created_at, updated_at
		FROM holdings WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.Symbol, &h.Company, &h.Shares, &h.BuyPrice, &h.CurrentPrice, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// UpdateHolding updates a holding scoped to its owner.
func (s *SQLiteStore) UpdateHolding(ctx context.Context, holding *models.Holding) error {
	if err := holding.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE holdings SET symbol = ?, company = ?, shares = ?, buy_price = ?, current_price = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		holding.Symbol, holding.Company, holding.Shares, holding.BuyPrice,
		holding.CurrentPrice, time.Now().UTC(), holding.ID, holding.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating holding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrHoldingNotFound
	}
	return nil
}

// DeleteHolding removes a holding scoped to its owner.
func (s *SQLiteStore) DeleteHolding(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting holding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrHoldingNotFound
	}
	return nil
}

// AddToWatchlist adds a symbol to the user's watchlist. Adding an existing
// symbol refreshes the company name.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, item *models.WatchlistItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (user_id, symbol, company, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET company = excluded.company`,
		item.UserID, item.Symbol, item.Company, item.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("adding watchlist item: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from the user's watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, userID, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return fmt.Errorf("removing watchlist item: %w", err)
	}
	return nil
}

// GetWatchlist returns the user's watchlist, oldest first.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, symbol, company, added_at FROM watchlist WHERE user_id = ? ORDER BY added_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying watchlist: %w", err)
	}
	defer rows.Close()

	var items []models.WatchlistItem
	for rows.Next() {
		var it models.WatchlistItem
		if err := rows.Scan(&it.UserID, &it.Symbol, &it.Company, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning watchlist item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SaveUser upserts a directory entry.
func (s *SQLiteStore) SaveUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		user.ID, user.Email, user.Name,
	)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// GetUserEmail resolves a user's notification address.
func (s *SQLiteStore) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, userID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying user email: %w", err)
	}
	return email, nil
}

// ListUsers returns all directory entries.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var active, triggered int
	var last sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.Symbol, &a.Company, (*string)(&a.Condition), &a.Value,
		(*string)(&a.Frequency), &active, &triggered, &last, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Active = active != 0
	a.Triggered = triggered != 0
	if last.Valid {
		t := last.Time
		a.LastTriggered = &t
	}
	return &a, nil
}

func scanAlerts(rows *sql.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
