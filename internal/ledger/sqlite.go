package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore persists ledger state in a SQLite database, used by the
// administrative CLI.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the ledger tables when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_accounts (
			id         TEXT PRIMARY KEY,
			raw        INTEGER NOT NULL,
			last_touch INTEGER NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_allowances (
			owner   TEXT NOT NULL,
			spender TEXT NOT NULL,
			amount  INTEGER NOT NULL,
			PRIMARY KEY (owner, spender)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) LoadAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, raw, last_touch FROM ledger_accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Raw, &a.LastTouch); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) LoadAllowances(ctx context.Context) ([]Allowance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, spender, amount FROM ledger_allowances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allowances []Allowance
	for rows.Next() {
		var al Allowance
		if err := rows.Scan(&al.Owner, &al.Spender, &al.Amount); err != nil {
			return nil, err
		}
		allowances = append(allowances, al)
	}
	return allowances, rows.Err()
}

func (s *SQLiteStore) Apply(ctx context.Context, changes Changes) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	for _, a := range changes.Accounts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_accounts (id, raw, last_touch) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET raw = excluded.raw, last_touch = excluded.last_touch, updated_at = datetime('now')`,
			a.ID, a.Raw, a.LastTouch); err != nil {
			return err
		}
	}
	for _, al := range changes.Allowances {
		var err error
		if al.Amount == 0 {
			// a cleared allowance has no row
			_, err = tx.ExecContext(ctx, `DELETE FROM ledger_allowances WHERE owner = ? AND spender = ?`,
				al.Owner, al.Spender)
		} else {
			_, err = tx.ExecContext(ctx, `INSERT INTO ledger_allowances (owner, spender, amount) VALUES (?, ?, ?)
			ON CONFLICT (owner, spender) DO UPDATE SET amount = excluded.amount`,
				al.Owner, al.Spender, al.Amount)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
