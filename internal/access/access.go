package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Role names a capability that can be granted to an account.
type Role string

const (
	// RoleAdmin may grant and revoke every role, including its own.
	RoleAdmin Role = "admin"
	// RoleMinter may mint value into any account.
	RoleMinter Role = "minter"
	// RoleBurner may burn value held by any account.
	RoleBurner Role = "burner"
)

var (
	// ErrUnauthorized is returned when the caller does not hold the role an
	// operation requires.
	ErrUnauthorized = errors.New("caller is missing required role")

	// ErrUnknownRole is returned for role names outside the known set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrInvalidAccount is returned when an empty account id is supplied.
	ErrInvalidAccount = errors.New("account id is required")
)

// ParseRole validates a role name received from an external caller.
func ParseRole(name string) (Role, error) {
	switch r := Role(name); r {
	case RoleAdmin, RoleMinter, RoleBurner:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Grant is a persisted role assignment.
type Grant struct {
	Role    Role
	Account string
}

// Registry holds role membership in memory and writes every change through
// to its Store before it becomes visible.
type Registry struct {
	mu      sync.RWMutex
	store   Store
	members map[Role]map[string]struct{}
}

// NewRegistry loads all grants from the store.
func NewRegistry(ctx context.Context, store Store) (*Registry, error) {
	grants, err := store.LoadGrants(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}
	r := &Registry{store: store, members: make(map[Role]map[string]struct{})}
	for _, g := range grants {
		r.add(g.Role, g.Account)
	}
	return r, nil
}

// Bootstrap makes account the administrator and a minter when the registry
// has no administrator yet. It reports whether anything was granted.
func (r *Registry) Bootstrap(ctx context.Context, account string) (bool, error) {
	if account == "" {
		return false, ErrInvalidAccount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members[RoleAdmin]) > 0 {
		return false, nil
	}
	for _, role := range []Role{RoleAdmin, RoleMinter} {
		if err := r.store.SaveGrant(ctx, Grant{Role: role, Account: account}); err != nil {
			return false, err
		}
		r.add(role, account)
	}
	return true, nil
}

// HasRole reports whether account holds role.
func (r *Registry) HasRole(role Role, account string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[role][account]
	return ok
}

// Members lists the holders of role in sorted order.
func (r *Registry) Members(role Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members[role]))
	for account := range r.members[role] {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}

// Grant gives role to account. Only administrators may grant roles;
// granting a role already held is a no-op.
func (r *Registry) Grant(ctx context.Context, caller string, role Role, account string) error {
	if account == "" {
		return ErrInvalidAccount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[RoleAdmin][caller]; !ok {
		return ErrUnauthorized
	}
	if _, ok := r.members[role][account]; ok {
		return nil
	}
	if err := r.store.SaveGrant(ctx, Grant{Role: role, Account: account}); err != nil {
		return err
	}
	r.add(role, account)
	return nil
}

// Revoke removes role from account. An administrator may revoke its own
// admin role, after which nobody can manage roles until re-bootstrapped.
func (r *Registry) Revoke(ctx context.Context, caller string, role Role, account string) error {
	if account == "" {
		return ErrInvalidAccount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[RoleAdmin][caller]; !ok {
		return ErrUnauthorized
	}
	if _, ok := r.members[role][account]; !ok {
		return nil
	}
	if err := r.store.DeleteGrant(ctx, Grant{Role: role, Account: account}); err != nil {
		return err
	}
	delete(r.members[role], account)
	return nil
}

func (r *Registry) add(role Role, account string) {
	set, ok := r.members[role]
	if !ok {
		set = make(map[string]struct{})
		r.members[role] = set
	}
	set[account] = struct{}{}
}
