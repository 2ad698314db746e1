package quotedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"navigator.metromap.org/internal/logging"
)

// ErrNotFound is returned when no cached quote exists.
var ErrNotFound = errors.New("fare quote not cached")

const dateLayout = "2006-01-02"

// Quote is one cached lowest-price answer from the schedule service.
type Quote struct {
	FromCode  string
	ToCode    string
	Date      time.Time
	Price     int64
	FetchedAt time.Time
}

// Client persists fare quotes between runs.
type Client struct {
	config  Config
	DB      *sql.DB
	logger  *slog.Logger
	writeMu sync.Mutex
}

// NewClient opens the database described by config and ensures the schema.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	db, err := InitDB(config)
	if err != nil {
		return nil, err
	}
	client := NewClientFromDB(db, config, logger)
	if config.verbose {
		logging.LogOperation(client.logger, "quote_db_ready", slog.String("path", config.DBPath))
	}
	return client, nil
}

// NewClientFromDB wraps an already opened database. The schema is assumed to
// exist.
func NewClientFromDB(db *sql.DB, config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		DB:     db,
		logger: logger.With(slog.String("component", "quote_db")),
	}
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// SaveQuote inserts or refreshes a cached quote.
func (c *Client) SaveQuote(ctx context.Context, q Quote) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "save_fare_quote")

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fare_quotes (from_code, to_code, travel_date, price, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_code, to_code, travel_date)
		DO UPDATE SET price = excluded.price, fetched_at = excluded.fetched_at`,
		q.FromCode, q.ToCode, q.Date.Format(dateLayout), q.Price, q.FetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("error saving fare quote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing fare quote: %w", err)
	}
	return nil
}

// LookupQuote returns the cached quote for a station pair and travel date.
func (c *Client) LookupQuote(ctx context.Context, fromCode, toCode string, date time.Time) (Quote, error) {
	q := Quote{FromCode: fromCode, ToCode: toCode}
	var travelDate string
	var fetchedAt int64

	err := c.DB.QueryRowContext(ctx, `
		SELECT travel_date, price, fetched_at FROM fare_quotes
		WHERE from_code = ? AND to_code = ? AND travel_date = ?`,
		fromCode, toCode, date.Format(dateLayout)).Scan(&travelDate, &q.Price, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("error looking up fare quote: %w", err)
	}

	q.Date, err = time.Parse(dateLayout, travelDate)
	if err != nil {
		return Quote{}, fmt.Errorf("error parsing cached travel date %q: %w", travelDate, err)
	}
	q.FetchedAt = time.Unix(fetchedAt, 0)
	return q, nil
}

// DeleteOlderThan removes quotes fetched before cutoff and returns how many
// rows were dropped.
func (c *Client) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.DB.ExecContext(ctx, `DELETE FROM fare_quotes WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("error deleting stale fare quotes: %w", err)
	}
	return res.RowsAffected()
}
