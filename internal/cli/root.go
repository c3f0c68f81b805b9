package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/intime-labs/intime/internal/access"
	"github.com/intime-labs/intime/internal/infra"
	"github.com/intime-labs/intime/internal/ledger"
	"github.com/intime-labs/intime/internal/logging"
)

type options struct {
	dbPath   string
	caller   string
	rate     int64
	policy   string
	logLevel string
	clock    ledger.Clock
}

// NewRootCmd builds the intimectl command tree. clock may be nil to use wall time.
func NewRootCmd(clock ledger.Clock) *cobra.Command {
	opts := &options{clock: clock}

	root := &cobra.Command{
		Use:           "intimectl",
		Short:         "Administer a local InTime ledger",
		Long:          "intimectl operates a decaying-balance ledger stored in a local SQLite file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", envOr("SQLITE_PATH", "intime.db"), "path to the SQLite ledger file")
	flags.StringVar(&opts.caller, "as", os.Getenv("INTIME_ACCOUNT"), "account the command acts as")
	flags.Int64Var(&opts.rate, "rate", envInt("DECAY_RATE", ledger.DefaultDecayRate), "value units decayed per millisecond")
	flags.StringVar(&opts.policy, "policy", envOr("MINT_POLICY", string(ledger.PolicyRestorative)), "mint policy: restorative or strict")
	flags.StringVar(&opts.logLevel, "log-level", "error", "log level for engine diagnostics")

	root.AddCommand(
		initCmd(opts),
		mintCmd(opts),
		burnCmd(opts),
		burnFromCmd(opts),
		transferCmd(opts),
		approveCmd(opts),
		transferFromCmd(opts),
		balanceCmd(opts),
		timeCmd(opts),
		supplyCmd(opts),
		accountsCmd(opts),
		roleCmd(opts, "grant"),
		roleCmd(opts, "revoke"),
	)
	return root
}

// Execute runs intimectl against os.Args.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

// session is an opened ledger: database, role registry and engine.
type session struct {
	db     *sql.DB
	roles  *access.Registry
	engine *ledger.Engine
}

func (o *options) open(ctx context.Context) (*session, error) {
	policy, err := ledger.ParsePolicy(o.policy)
	if err != nil {
		return nil, err
	}
	db, err := infra.NewSQLiteDB(ctx, o.dbPath)
	if err != nil {
		return nil, err
	}

	ledgerStore := ledger.NewSQLiteStore(db)
	roleStore := access.NewSQLiteStore(db)
	if err := ledgerStore.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	if err := roleStore.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate roles: %w", err)
	}

	roles, err := access.NewRegistry(ctx, roleStore)
	if err != nil {
		db.Close()
		return nil, err
	}
	engine, err := ledger.NewEngine(ctx, ledger.EngineConfig{
		Store:  ledgerStore,
		Roles:  roles,
		Clock:  o.clock,
		Rate:   o.rate,
		Policy: policy,
		Logger: logging.NewText(os.Stderr, o.logLevel),
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &session{db: db, roles: roles, engine: engine}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

// withSession opens the ledger for the duration of fn.
func (o *options) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func (o *options) requireCaller() error {
	if o.caller == "" {
		return fmt.Errorf("--as is required for this command")
	}
	return nil
}

func parseAmount(s string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}
