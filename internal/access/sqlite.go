package access

import (
	"context"
	"database/sql"
)

// SQLiteStore keeps role grants in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the role_grants table when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS role_grants (
		role       TEXT NOT NULL,
		account    TEXT NOT NULL,
		granted_at TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (role, account)
	)`)
	return err
}

func (s *SQLiteStore) LoadGrants(ctx context.Context) ([]Grant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, account FROM role_grants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var role, account string
		if err := rows.Scan(&role, &account); err != nil {
			return nil, err
		}
		grants = append(grants, Grant{Role: Role(role), Account: account})
	}
	return grants, rows.Err()
}

func (s *SQLiteStore) SaveGrant(ctx context.Context, grant Grant) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO role_grants (role, account) VALUES (?, ?)`, string(grant.Role), grant.Account)
	return err
}

func (s *SQLiteStore) DeleteGrant(ctx context.Context, grant Grant) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM role_grants WHERE role = ? AND account = ?`, string(grant.Role), grant.Account)
	return err
}
