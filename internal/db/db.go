package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/stroymat/materials-bot/internal/models"
)

// ErrEncryptionUnavailable is returned when a key is given but the sqlite3
// driver was not built against SQLCipher.
var ErrEncryptionUnavailable = errors.New("journal encryption requires a SQLCipher build of go-sqlite3")

type DB struct {
	conn *sql.DB
}

// New opens the dispatch journal. A non-empty encryptionKey encrypts the file
// at rest and is refused unless the driver supports SQLCipher.
func New(dbPath string, encryptionKey string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn(dbPath, encryptionKey))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if encryptionKey != "" {
		if err := db.checkCipher(); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func dsn(dbPath, encryptionKey string) string {
	if encryptionKey == "" {
		return dbPath
	}
	return fmt.Sprintf("%s?_pragma_key=%s&_pragma_cipher_page_size=4096", dbPath, url.QueryEscape(encryptionKey))
}

// checkCipher fails unless the connection is SQLCipher. Plain sqlite ignores
// the unknown pragma and returns no row.
func (db *DB) checkCipher() error {
	var version string
	err := db.conn.QueryRow(`PRAGMA cipher_version`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows), err == nil && version == "":
		return ErrEncryptionUnavailable
	case err != nil:
		return fmt.Errorf("failed to check journal encryption: %w", err)
	}
	return nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dispatches (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		display_name TEXT,
		material TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT NOT NULL,
		estimated_price TEXT NOT NULL,
		ai_recommendation TEXT,
		status TEXT NOT NULL,
		error TEXT,
		created_at DATETIME NOT NULL,
		confirmed_at DATETIME NOT NULL,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dispatches_status ON dispatches(status);
	CREATE INDEX IF NOT EXISTS idx_dispatches_recorded_at ON dispatches(recorded_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecordDispatch stores the outcome of one order relay
func (db *DB) RecordDispatch(ctx context.Context, rec models.DispatchRecord) error {
	o := rec.Order
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO dispatches (id, order_number, user_id, display_name, material, quantity, unit,
		        address, phone, estimated_price, ai_recommendation, status, error,
		        created_at, confirmed_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, o.Number, o.UserID, o.DisplayName, o.Material, o.Quantity.String(), o.Unit,
		o.Address, o.Phone, o.EstimatedPrice.String(), o.AIRecommendation, rec.Status, rec.Error,
		o.CreatedAt.UTC(), o.ConfirmedAt.UTC(), rec.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record dispatch %s: %w", o.Number, err)
	}
	return nil
}

// ListDispatches returns the newest journal rows, optionally filtered by status
func (db *DB) ListDispatches(ctx context.Context, status models.DispatchStatus, limit int) ([]models.DispatchRecord, error) {
	query := `SELECT id, order_number, user_id, display_name, material, quantity, unit,
	                 address, phone, estimated_price, ai_recommendation, status, error,
	                 created_at, confirmed_at, recorded_at
	          FROM dispatches`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY recorded_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.DispatchRecord
	for rows.Next() {
		var rec models.DispatchRecord
		var quantity, price string
		var displayName, advice, errText sql.NullString
		err := rows.Scan(
			&rec.ID, &rec.Order.Number, &rec.Order.UserID, &displayName, &rec.Order.Material,
			&quantity, &rec.Order.Unit, &rec.Order.Address, &rec.Order.Phone, &price,
			&advice, &rec.Status, &errText,
			&rec.Order.CreatedAt, &rec.Order.ConfirmedAt, &rec.RecordedAt,
		)
		if err != nil {
			return nil, err
		}

		if rec.Order.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("bad quantity in dispatch %s: %w", rec.ID, err)
		}
		if rec.Order.EstimatedPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad price in dispatch %s: %w", rec.ID, err)
		}
		rec.Order.DisplayName = displayName.String
		rec.Order.AIRecommendation = advice.String
		rec.Error = errText.String

		records = append(records, rec)
	}

	return records, rows.Err()
}

// PurgeOldDispatches deletes journal rows older than the specified duration
func (db *DB) PurgeOldDispatches(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := db.conn.ExecContext(ctx, `DELETE FROM dispatches WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
