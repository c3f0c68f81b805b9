package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/intime-labs/intime/internal/access"
)

var (
	// ErrUnauthorized occurs when the caller lacks the role an operation needs.
	ErrUnauthorized = access.ErrUnauthorized

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidAccount is returned when an empty account id is supplied.
	ErrInvalidAccount = errors.New("account id is required")

	// ErrInsufficientBalance occurs when a burn or transfer exceeds the
	// caller's current decayed balance.
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")

	// ErrRecipientExpired occurs when a transfer targets an account whose
	// balance has reached zero. Only a minter can revive such an account.
	ErrRecipientExpired = errors.New("transfer to expired account")

	// ErrAccountExpired is returned by the strict mint policy when the target
	// account has held value before and its balance is now zero.
	ErrAccountExpired = errors.New("minting to expired account")

	// ErrInsufficientAllowance occurs when a delegated transfer exceeds the
	// amount approved by the owner.
	ErrInsufficientAllowance = errors.New("transfer amount exceeds allowance")

	// ErrAmountOverflow occurs when a credit would push an account's raw
	// value or its deadline past the int64 range.
	ErrAmountOverflow = errors.New("amount exceeds account capacity")
)

const (
	// DefaultDecayRate is the number of value units consumed per millisecond.
	DefaultDecayRate int64 = 1

	// MaxDecayRate bounds the configurable rate so that now*rate stays well
	// inside int64 for the next several centuries of wall time.
	MaxDecayRate int64 = 100_000
)

// Policy selects how minting treats accounts whose balance reached zero.
type Policy string

const (
	// PolicyRestorative adds minted value to the raw, possibly negative,
	// value so an expired account comes back once the sum turns positive.
	PolicyRestorative Policy = "restorative"
	// PolicyStrict refuses to mint into an account that has expired.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a configured mint policy name.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(name)); p {
	case PolicyRestorative, PolicyStrict:
		return p, nil
	case "":
		return PolicyRestorative, nil
	}
	return "", fmt.Errorf("unknown mint policy %q", name)
}

// Account is the stored state of a single holder: its signed raw value as of
// LastTouch, in milliseconds since the Unix epoch.
type Account struct {
	ID        string
	Raw       int64
	LastTouch int64
}

// Decayed returns the raw value at now; it goes negative once the account
// has run out.
func (a Account) Decayed(now, rate int64) int64 {
	return a.Raw - (now-a.LastTouch)*rate
}

// Balance returns the externally visible, never negative value at now.
func (a Account) Balance(now, rate int64) int64 {
	if v := a.Decayed(now, rate); v > 0 {
		return v
	}
	return 0
}

// Deadline is the point, in value units on the rate-scaled clock, at which
// the account reaches zero. Pure decay leaves it unchanged.
func (a Account) Deadline(rate int64) int64 {
	return a.LastTouch*rate + a.Raw
}

// Touch realises decay up to now into Raw.
func (a *Account) Touch(now, rate int64) {
	a.Raw = a.Decayed(now, rate)
	a.LastTouch = now
}

// Allowance is the amount a spender may move out of an owner's account.
type Allowance struct {
	Owner   string
	Spender string
	Amount  int64
}

// Changes is the set of rows one ledger operation writes.
type Changes struct {
	Accounts   []Account
	Allowances []Allowance
}

// Clock reports the current instant in milliseconds since the Unix epoch.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the wall clock in milliseconds.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}
