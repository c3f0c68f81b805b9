package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/intime-labs/intime/internal/access"
	"github.com/intime-labs/intime/internal/expiry"
	"github.com/intime-labs/intime/internal/logging"
	"github.com/intime-labs/intime/internal/notification"
)

// Roles answers authorization questions for the engine.
type Roles interface {
	HasRole(role access.Role, account string) bool
}

// EngineConfig collects the engine's collaborators. Store and Roles are
// required; the rest fall back to defaults.
type EngineConfig struct {
	Store    Store
	Roles    Roles
	Clock    Clock
	Rate     int64
	Policy   Policy
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Engine is the decaying ledger. Mutations are applied one at a time: each
// touches the accounts it involves, validates, persists through the Store
// and only then becomes visible. Reads compute decay analytically at the
// clock's current instant.
type Engine struct {
	mu         sync.RWMutex
	store      Store
	roles      Roles
	clock      Clock
	rate       int64
	policy     Policy
	notifier   notification.Notifier
	logger     *slog.Logger
	accounts   map[string]Account
	allowances map[allowanceKey]int64
	index      *expiry.Index
}

// NewEngine loads persisted state and rebuilds the expiry index from it.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if cfg.Roles == nil {
		return nil, fmt.Errorf("role registry is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Rate == 0 {
		cfg.Rate = DefaultDecayRate
	}
	if cfg.Rate < 0 || cfg.Rate > MaxDecayRate {
		return nil, fmt.Errorf("decay rate must be between 1 and %d, got %d", MaxDecayRate, cfg.Rate)
	}
	// Deadlines are now*rate + raw; leave room for raw past the current cutoff.
	if now := cfg.Clock.Now(); now > 0 && cfg.Rate > math.MaxInt64/4/now {
		return nil, fmt.Errorf("decay rate %d overflows deadlines at %s", cfg.Rate, time.UnixMilli(now).UTC())
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyRestorative
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	accounts, err := cfg.Store.LoadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	allowances, err := cfg.Store.LoadAllowances(ctx)
	if err != nil {
		return nil, fmt.Errorf("load allowances: %w", err)
	}

	e := &Engine{
		store:      cfg.Store,
		roles:      cfg.Roles,
		clock:      cfg.Clock,
		rate:       cfg.Rate,
		policy:     cfg.Policy,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		accounts:   make(map[string]Account, len(accounts)),
		allowances: make(map[allowanceKey]int64, len(allowances)),
		index:      expiry.New(),
	}

	now := e.clock.Now()
	for _, a := range accounts {
		e.accounts[a.ID] = a
		if a.Balance(now, e.rate) > 0 {
			e.index.Insert(a.ID, a.Deadline(e.rate))
		}
	}
	for _, al := range allowances {
		e.allowances[allowanceKey{owner: al.Owner, spender: al.Spender}] = al.Amount
	}

	e.logger.Info("ledger loaded",
		slog.Int("accounts", len(e.accounts)),
		slog.Int("live", e.index.Len()),
		slog.Int64("decay_rate", e.rate),
		slog.String("mint_policy", string(e.policy)),
	)
	return e, nil
}

// Rate returns the number of value units consumed per millisecond.
func (e *Engine) Rate() int64 {
	return e.rate
}

// Policy returns the configured mint policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Mint adds amount to an account. The caller must be a minter; the role is
// checked under the write lock together with the rest of the mutation.
func (e *Engine) Mint(ctx context.Context, caller, to string, amount int64) error {
	return e.apply(ctx, func(m *mutation) error {
		if !e.roles.HasRole(access.RoleMinter, caller) {
			return ErrUnauthorized
		}
		if amount <= 0 {
			return ErrInvalidAmount
		}
		if to == "" {
			return ErrInvalidAccount
		}
		acct, existed := m.touch(to)
		if e.policy == PolicyStrict && existed && acct.Raw <= 0 {
			return ErrAccountExpired
		}
		if err := m.credit(acct, amount); err != nil {
			return err
		}
		m.emit(notification.KindMint, "", to, amount)
		return nil
	})
}

// Burn destroys amount from the caller's own account.
func (e *Engine) Burn(ctx context.Context, caller string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return e.apply(ctx, func(m *mutation) error {
		return m.burn(caller, amount)
	})
}

// BurnFrom destroys amount from another account. The caller must be a burner.
func (e *Engine) BurnFrom(ctx context.Context, caller, from string, amount int64) error {
	return e.apply(ctx, func(m *mutation) error {
		if !e.roles.HasRole(access.RoleBurner, caller) {
			return ErrUnauthorized
		}
		if amount <= 0 {
			return ErrInvalidAmount
		}
		return m.burn(from, amount)
	})
}

// Transfer moves amount from the caller to a live recipient.
func (e *Engine) Transfer(ctx context.Context, caller, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if to == "" {
		return ErrInvalidAccount
	}
	return e.apply(ctx, func(m *mutation) error {
		return m.transfer(caller, to, amount)
	})
}

// Approve sets the amount spender may move out of owner's account. A zero
// amount clears the allowance.
func (e *Engine) Approve(ctx context.Context, owner, spender string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if owner == "" || spender == "" {
		return ErrInvalidAccount
	}
	return e.apply(ctx, func(m *mutation) error {
		m.setAllowance(owner, spender, amount)
		m.emit(notification.KindApproval, owner, spender, amount)
		return nil
	})
}

// TransferFrom moves amount out of from's account on behalf of spender,
// consuming the allowance from granted to spender.
func (e *Engine) TransferFrom(ctx context.Context, spender, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	return e.apply(ctx, func(m *mutation) error {
		allowed := m.allowance(from, spender)
		if allowed < amount {
			return ErrInsufficientAllowance
		}
		if err := m.transfer(from, to, amount); err != nil {
			return err
		}
		m.setAllowance(from, spender, allowed-amount)
		return nil
	})
}

// BalanceOf returns the account's current non-negative balance. Unknown
// accounts have zero balance.
func (e *Engine) BalanceOf(account string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.accounts[account].Balance(e.clock.Now(), e.rate)
}

// TimeOf returns the account's current raw value, which is negative once
// the account has been exhausted for a while.
func (e *Engine) TimeOf(account string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.accounts[account]
	if !ok {
		return 0
	}
	return a.Decayed(e.clock.Now(), e.rate)
}

// ExpiresAt returns the instant a live account will reach zero absent
// further changes. It reports false for accounts with no balance.
func (e *Engine) ExpiresAt(account string) (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.accounts[account]
	if !ok || a.Balance(e.clock.Now(), e.rate) == 0 {
		return time.Time{}, false
	}
	d := a.Deadline(e.rate)
	ms := d / e.rate
	if d%e.rate != 0 {
		ms++
	}
	return time.UnixMilli(ms).UTC(), true
}

// TotalSupply returns the sum of every account's current balance. It reads
// the expiry index instead of visiting accounts: each live account adds
// deadline - now*rate, and accounts past their deadline add nothing.
func (e *Engine) TotalSupply() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := e.clock.Now() * e.rate
	count, sum := e.index.AggregateAfter(cutoff)
	if count == 0 {
		return new(uint256.Int)
	}
	var decayed uint256.Int
	decayed.Mul(uint256.NewInt(uint64(count)), uint256.NewInt(uint64(cutoff)))
	return new(uint256.Int).Sub(&sum, &decayed)
}

// Allowance returns how much spender may still move out of owner's account.
func (e *Engine) Allowance(owner, spender string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.allowances[allowanceKey{owner: owner, spender: spender}]
}

// Accounts lists every account that has ever held value, in id order.
func (e *Engine) Accounts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.accounts))
	for id := range e.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// apply runs fn against a fresh mutation while holding the write lock,
// persists what it touched and then publishes the result. Nothing is kept
// when fn or the store fails.
func (e *Engine) apply(ctx context.Context, fn func(m *mutation) error) error {
	events, err := func() ([]notification.Event, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		m := &mutation{
			engine:     e,
			now:        e.clock.Now(),
			touched:    make(map[string]*Account),
			allowances: make(map[allowanceKey]int64),
		}
		if err := fn(m); err != nil {
			return nil, err
		}
		if err := e.store.Apply(ctx, m.changes()); err != nil {
			return nil, fmt.Errorf("persist ledger changes: %w", err)
		}
		e.commit(m)
		return m.events, nil
	}()
	if err != nil {
		return err
	}

	if e.notifier != nil {
		for _, ev := range events {
			if err := e.notifier.Send(ctx, ev); err != nil {
				e.logger.Warn("ledger event delivery failed", slog.String("kind", ev.Kind), slog.Any("error", err))
			}
		}
	}
	return nil
}

// commit makes a persisted mutation visible and reconciles index membership.
func (e *Engine) commit(m *mutation) {
	for id, a := range m.touched {
		e.accounts[id] = *a
		if a.Raw > 0 {
			e.index.Insert(id, a.Deadline(e.rate))
		} else {
			e.index.Remove(id)
		}
	}
	for k, amount := range m.allowances {
		if amount == 0 {
			delete(e.allowances, k)
			continue
		}
		e.allowances[k] = amount
	}
}

// mutation holds working copies of the rows one operation changes.
type mutation struct {
	engine     *Engine
	now        int64
	touched    map[string]*Account
	allowances map[allowanceKey]int64
	events     []notification.Event
}

// touch returns a working copy of the account with decay realised up to
// now, and whether the account existed before.
func (m *mutation) touch(id string) (*Account, bool) {
	if a, ok := m.touched[id]; ok {
		return a, true
	}
	a, existed := m.engine.accounts[id]
	if !existed {
		a = Account{ID: id, LastTouch: m.now}
	}
	a.Touch(m.now, m.engine.rate)
	m.touched[id] = &a
	return &a, existed
}

func (m *mutation) burn(from string, amount int64) error {
	acct, _ := m.touch(from)
	if amount > acct.Balance(m.now, m.engine.rate) {
		return ErrInsufficientBalance
	}
	acct.Raw -= amount
	m.emit(notification.KindBurn, from, "", amount)
	return nil
}

func (m *mutation) transfer(from, to string, amount int64) error {
	sender, _ := m.touch(from)
	if amount > sender.Balance(m.now, m.engine.rate) {
		return ErrInsufficientBalance
	}
	recipient, _ := m.touch(to)
	if recipient.Balance(m.now, m.engine.rate) == 0 {
		return ErrRecipientExpired
	}
	sender.Raw -= amount
	if err := m.credit(recipient, amount); err != nil {
		return err
	}
	m.emit(notification.KindTransfer, from, to, amount)
	return nil
}

// credit adds amount to a touched account, refusing when the new raw value
// or the deadline now*rate+raw would not fit in an int64.
func (m *mutation) credit(a *Account, amount int64) error {
	headroom := int64(math.MaxInt64) - m.now*m.engine.rate
	if a.Raw > 0 {
		headroom -= a.Raw
	}
	if amount > headroom {
		return ErrAmountOverflow
	}
	a.Raw += amount
	return nil
}

func (m *mutation) allowance(owner, spender string) int64 {
	k := allowanceKey{owner: owner, spender: spender}
	if amount, ok := m.allowances[k]; ok {
		return amount
	}
	return m.engine.allowances[k]
}

func (m *mutation) setAllowance(owner, spender string, amount int64) {
	m.allowances[allowanceKey{owner: owner, spender: spender}] = amount
}

func (m *mutation) emit(kind, from, to string, amount int64) {
	m.events = append(m.events, notification.Event{
		Kind:   kind,
		From:   from,
		To:     to,
		Amount: amount,
		At:     time.UnixMilli(m.now).UTC(),
	})
}

func (m *mutation) changes() Changes {
	var c Changes
	ids := make([]string, 0, len(m.touched))
	for id := range m.touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.Accounts = append(c.Accounts, *m.touched[id])
	}
	for k, amount := range m.allowances {
		c.Allowances = append(c.Allowances, Allowance{Owner: k.owner, Spender: k.spender, Amount: amount})
	}
	return c
}
