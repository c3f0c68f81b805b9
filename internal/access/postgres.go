package access

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps role grants in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed grant store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the role_grants table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS role_grants (
		role       TEXT NOT NULL,
		account    TEXT NOT NULL,
		granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (role, account)
	)`)
	return err
}

// LoadGrants returns every stored grant.
func (s *PostgresStore) LoadGrants(ctx context.Context) ([]Grant, error) {
	rows, err := s.db.Query(ctx, `SELECT role, account FROM role_grants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var role string
		if err := rows.Scan(&role, &g.Account); err != nil {
			return nil, err
		}
		g.Role = Role(role)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// SaveGrant inserts a grant, ignoring duplicates.
func (s *PostgresStore) SaveGrant(ctx context.Context, grant Grant) error {
	_, err := s.db.Exec(ctx, `INSERT INTO role_grants (role, account) VALUES ($1, $2)
		ON CONFLICT (role, account) DO NOTHING`, string(grant.Role), grant.Account)
	return err
}

// DeleteGrant removes a grant.
func (s *PostgresStore) DeleteGrant(ctx context.Context, grant Grant) error {
	_, err := s.db.Exec(ctx, `DELETE FROM role_grants WHERE role = $1 AND account = $2`, string(grant.Role), grant.Account)
	return err
}
