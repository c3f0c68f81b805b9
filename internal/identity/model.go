package identity

import (
	"errors"
	"time"
)

var (
	ErrUserExists   = errors.New("user exists")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidPIN   = errors.New("invalid PIN")
)

// User is a registered account holder. Account is the ledger account the
// holder acts as once authenticated.
type User struct {
	ID           string
	Account      string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Credentials request structure.
type Credentials struct {
	Account  string
	PIN      string
	DeviceID string
}
