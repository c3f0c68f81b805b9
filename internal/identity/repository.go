package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByAccount(ctx context.Context, account string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdateDevice(ctx context.Context, id, deviceID string) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the users table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		account       TEXT NOT NULL UNIQUE,
		pin_hash      BYTEA NOT NULL,
		device_id     TEXT NOT NULL DEFAULT '',
		token_version INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL,
		last_login    TIMESTAMPTZ
	)`)
	return err
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, account, pin_hash, device_id, token_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, userID, user.Account, user.PINHash, user.DeviceID, user.TokenVersion, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

const selectUser = `SELECT id, account, pin_hash, device_id, token_version, created_at, last_login FROM users`

// FindByAccount fetches a user by ledger account handle.
func (r *PostgresRepository) FindByAccount(ctx context.Context, account string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE account = $1`, account))
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, userID))
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		lastLogin *time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Account, &user.PINHash, &user.DeviceID, &user.TokenVersion, &createdAt, &lastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	if lastLogin != nil {
		t := lastLogin.UTC()
		user.LastLogin = &t
	}
	return user, nil
}

// UpdateDevice stores the users bound device identifier.
func (r *PostgresRepository) UpdateDevice(ctx context.Context, id, deviceID string) error {
	return r.update(ctx, `UPDATE users SET device_id = $1 WHERE id = $2`, id, deviceID)
}

// UpdateTokenVersion replaces the token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.update(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, id, version)
}

// TouchLogin records a successful login.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, id, at.UTC())
}

func (r *PostgresRepository) update(ctx context.Context, query, id string, value any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
