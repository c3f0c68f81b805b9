package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intime-labs/intime/internal/access"
	"github.com/intime-labs/intime/internal/ledger"
)

type harness struct {
	t     *testing.T
	db    string
	clock *ledger.ManualClock
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:     t,
		db:    filepath.Join(t.TempDir(), "ledger.db"),
		clock: ledger.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd(h.clock)
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{"--db", h.db, "--rate", "1", "--policy", "restorative"}, args...))
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestCLILedgerLifecycle(t *testing.T) {
	h := newHarness(t)

	require.Contains(t, h.mustRun("init", "--admin", "treasury"), "admin treasury")
	require.Contains(t, h.mustRun("init", "--admin", "someone"), "already has an admin")

	require.Contains(t, h.mustRun("--as", "treasury", "mint", "holder1", "100000"), "holder1\t100000")
	require.Contains(t, h.mustRun("--as", "treasury", "mint", "holder2", "50000"), "holder2\t50000")

	h.clock.Advance(30 * time.Second)

	require.Contains(t, h.mustRun("--as", "holder1", "transfer", "holder2", "20000"), "holder1\t50000")
	require.Equal(t, "90000", h.mustRun("supply"))
	require.Contains(t, h.mustRun("balance", "holder2"), "holder2\t40000")

	h.clock.Advance(45 * time.Second)
	require.Contains(t, h.mustRun("balance", "holder2"), "expired")
	require.Equal(t, "-5000", h.mustRun("time", "holder2"))
	require.Equal(t, "5000", h.mustRun("supply"))

	_, err := h.run("--as", "holder1", "transfer", "holder2", "1000")
	require.ErrorIs(t, err, ledger.ErrRecipientExpired)

	accounts := h.mustRun("accounts")
	require.Contains(t, accounts, "holder1\t5000")
	require.Contains(t, accounts, "holder2\t0\texpired")
}

func TestCLIRoles(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init", "--admin", "treasury")

	_, err := h.run("--as", "holder1", "grant", "minter", "holder1")
	require.ErrorIs(t, err, access.ErrUnauthorized)

	require.Equal(t, "minter bank: true", h.mustRun("--as", "treasury", "grant", "minter", "bank"))
	h.mustRun("--as", "bank", "mint", "holder1", "10")
	require.Equal(t, "minter bank: false", h.mustRun("--as", "treasury", "revoke", "minter", "bank"))

	_, err = h.run("--as", "bank", "mint", "holder1", "10")
	require.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestCLIValidatesInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("mint", "holder1", "10")
	require.ErrorContains(t, err, "--as is required")

	_, err = h.run("--as", "treasury", "mint", "holder1", "ten")
	require.ErrorContains(t, err, "invalid amount")

	_, err = h.run("init")
	require.ErrorContains(t, err, "--admin is required")
}
