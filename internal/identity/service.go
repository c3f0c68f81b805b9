package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var accountPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

// Service manages identity lifecycle.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a user bound to a fresh ledger account handle and stores
// a hashed PIN.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	if !accountPattern.MatchString(creds.Account) {
		return User{}, fmt.Errorf("account must be 3-64 lowercase letters, digits, '.', '_' or '-'")
	}
	if len(creds.PIN) < 4 {
		return User{}, errors.New("PIN must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        uuid.New().String(),
		Account:   creds.Account,
		PINHash:   hash,
		DeviceID:  creds.DeviceID,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials and device binding, then records the login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByAccount(ctx, creds.Account)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, ErrInvalidPIN
	}

	if user.DeviceID == "" {
		if creds.DeviceID == "" {
			return User{}, errors.New("device binding required")
		}
		if err := s.repo.UpdateDevice(ctx, user.ID, creds.DeviceID); err != nil {
			return User{}, err
		}
		user.DeviceID = creds.DeviceID
	} else if creds.DeviceID != "" && user.DeviceID != creds.DeviceID {
		return User{}, errors.New("device mismatch")
	}

	at := s.now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, at); err != nil {
		return User{}, err
	}
	user.LastLogin = &at

	return user, nil
}
