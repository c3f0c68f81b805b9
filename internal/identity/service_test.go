package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, Credentials{Account: "holder1", PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.LastLogin != nil {
		t.Fatalf("expected no login yet")
	}

	authed, err := svc.Authenticate(ctx, Credentials{Account: "holder1", PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID || authed.LastLogin == nil {
		t.Fatalf("unexpected authenticated user: %+v", authed)
	}

	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if stored.LastLogin == nil {
		t.Fatalf("expected last login to be persisted")
	}
}

func TestRegisterRejectsDuplicatesAndBadHandles(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Account: "holder1", PIN: "1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Account: "holder1", PIN: "9999"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	for _, account := range []string{"", "ab", "Holder", "has space"} {
		if _, err := svc.Register(ctx, Credentials{Account: account, PIN: "1234"}); err == nil {
			t.Fatalf("expected %q to be rejected", account)
		}
	}
	if _, err := svc.Register(ctx, Credentials{Account: "holder2", PIN: "12"}); err == nil {
		t.Fatalf("expected short PIN to be rejected")
	}
}

func TestAuthenticateDeviceMismatch(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Account: "holder1", PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Account: "holder1", PIN: "1234", DeviceID: "device-2"}); err == nil {
		t.Fatalf("expected device mismatch error")
	}
	if _, err := svc.Authenticate(ctx, Credentials{Account: "holder1", PIN: "0000", DeviceID: "device-1"}); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
}

func TestAuthenticateBindsFirstDevice(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Account: "holder1", PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Account: "holder1", PIN: "1234"}); err == nil {
		t.Fatalf("expected device binding to be required")
	}
	if _, err := svc.Authenticate(ctx, Credentials{Account: "holder1", PIN: "1234", DeviceID: "phone"}); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	stored, _ := repo.FindByID(ctx, user.ID)
	if stored.DeviceID != "phone" {
		t.Fatalf("expected device to be bound, got %q", stored.DeviceID)
	}
}
