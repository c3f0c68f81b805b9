package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists ledger accounts and allowances in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
        CREATE TABLE IF NOT EXISTS ledger_accounts (
            id         TEXT PRIMARY KEY,
            raw        BIGINT NOT NULL,
            last_touch BIGINT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );
        CREATE TABLE IF NOT EXISTS ledger_allowances (
            owner   TEXT NOT NULL,
            spender TEXT NOT NULL,
            amount  BIGINT NOT NULL,
            PRIMARY KEY (owner, spender)
        );`
	_, err := s.db.Exec(ctx, schema)
	return err
}

// LoadAccounts returns every account row.
func (s *PostgresStore) LoadAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, raw, last_touch FROM ledger_accounts ORDER BY id`)
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

// LoadAllowances returns every allowance row.
func (s *PostgresStore) LoadAllowances(ctx context.Context) ([]Allowance, error) {
	rows, err := s.db.Query(ctx, `SELECT owner, spender, amount FROM ledger_allowances`)
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

// Apply upserts all changed rows in a single transaction.
func (s *PostgresStore) Apply(ctx context.Context, changes Changes) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, a := range changes.Accounts {
		if _, err := tx.Exec(ctx, `INSERT INTO ledger_accounts (id, raw, last_touch) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET raw = EXCLUDED.raw, last_touch = EXCLUDED.last_touch, updated_at = now()`,
			a.ID, a.Raw, a.LastTouch); err != nil {
			return err
		}
	}
	for _, al := range changes.Allowances {
		if al.Amount == 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM ledger_allowances WHERE owner = $1 AND spender = $2`,
				al.Owner, al.Spender); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO ledger_allowances (owner, spender, amount) VALUES ($1, $2, $3)
			ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
			al.Owner, al.Spender, al.Amount); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
