// Package storage is the durable side of the ledger: a SQLite database
// holding transactions, the single credential record, profiles, and
// preferences.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"somiti/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Profile is the remote identity record checked at startup.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Credential is the single locally stored login record.
type Credential struct {
	Username string
	Password string
	Email    string
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction persists a transaction and its items atomically. A
// receipt-id collision surfaces as a constraint error; the caller treats it
// like any other write failure and rolls back its optimistic state.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, date, type, total_amount, payment_method, received_from, mobile_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date, string(t.Type), t.TotalAmount, string(t.PaymentMethod), t.ReceivedFrom, t.MobileNumber,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}

	for pos, item := range t.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, position, item_id, title, category, quantity, price_per_unit, total)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, pos, item.ID, item.Title, string(item.Category), item.Quantity, item.PricePerUnit, item.Total,
		)
		if err != nil {
			return fmt.Errorf("insert item %d of %s: %w", pos, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction %s: %w", t.ID, err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"type", string(t.Type),
		"total_amount", t.TotalAmount,
		"items", len(t.Items))
	return nil
}

// DeleteTransaction removes a transaction by id; items go with it via the
// cascade. Deleting a missing id reports ErrNotFound.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListTransactions returns the full ledger, newest date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, type, total_amount, payment_method, received_from, mobile_number
		 FROM transactions ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	index := make(map[string]int)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		index[t.ID] = len(txs)
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	itemRows, err := r.db.QueryContext(ctx,
		`SELECT transaction_id, item_id, title, category, quantity, price_per_unit, total
		 FROM transaction_items ORDER BY transaction_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var txID string
		var item core.TransactionItem
		var category string
		if err := itemRows.Scan(&txID, &item.ID, &item.Title, &category, &item.Quantity, &item.PricePerUnit, &item.Total); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Category = core.Category(category)
		if i, ok := index[txID]; ok {
			txs[i].Items = append(txs[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return txs, nil
}

// GetTransaction loads one transaction with its items in stored order.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, type, total_amount, payment_method, received_from, mobile_number
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, title, category, quantity, price_per_unit, total
		 FROM transaction_items WHERE transaction_id = ? ORDER BY position`, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("query items of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item core.TransactionItem
		var category string
		if err := rows.Scan(&item.ID, &item.Title, &category, &item.Quantity, &item.PricePerUnit, &item.Total); err != nil {
			return core.Transaction{}, fmt.Errorf("scan item: %w", err)
		}
		item.Category = core.Category(category)
		t.Items = append(t.Items, item)
	}
	if err := rows.Err(); err != nil {
		return core.Transaction{}, fmt.Errorf("iterate items: %w", err)
	}
	return t, nil
}

// CountTransactions feeds the receipt-number sequence.
func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// ListUnsynced returns transactions not yet mirrored to the backup sheet;
// the worker's startup catch-up runs on this.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE synced_at IS NULL ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsynced: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unsynced id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsynced: %w", err)
	}

	txs := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		t, err := r.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// MarkSynced stamps a transaction as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	return nil
}

// FindProfile looks up a profile by username (case-insensitive).
func (r *SQLiteRepository) FindProfile(ctx context.Context, username string) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT username, email FROM profiles WHERE username = ?`, username).
		Scan(&p.Username, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("profile %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("find profile %s: %w", username, err)
	}
	return p, nil
}

// SaveProfile inserts or replaces a profile record.
func (r *SQLiteRepository) SaveProfile(ctx context.Context, p Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (username, email) VALUES (?, ?)
		 ON CONFLICT(username) DO UPDATE SET email = excluded.email`,
		p.Username, p.Email)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.Username, err)
	}
	return nil
}

// GetCredential returns the single credential record.
func (r *SQLiteRepository) GetCredential(ctx context.Context) (Credential, error) {
	var c Credential
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password, email FROM credentials WHERE id = 1`).
		Scan(&c.Username, &c.Password, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

// SaveCredential overwrites the credential record unconditionally, so at most
// one record ever exists. Transaction data is untouched.
func (r *SQLiteRepository) SaveCredential(ctx context.Context, c Credential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, username, password, email) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username, password = excluded.password, email = excluded.email`,
		c.Username, c.Password, c.Email)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// UpdatePassword overwrites only the password field of the credential record.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, password string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET password = ? WHERE id = 1`, password)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPreference reads one key from the preferences table; missing keys fall
// back to the given default.
func (r *SQLiteRepository) GetPreference(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

// SetPreference writes one key to the preferences table.
func (r *SQLiteRepository) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var typ, method string
	err := row.Scan(&t.ID, &t.Date, &typ, &t.TotalAmount, &method, &t.ReceivedFrom, &t.MobileNumber)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.PaymentMethod = core.PaymentMethod(method)
	return t, nil
}
