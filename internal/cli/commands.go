package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/intime-labs/intime/internal/access"
)

func initCmd(o *options) *cobra.Command {
	var admin string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the ledger file and grant the first administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if admin == "" {
				return fmt.Errorf("--admin is required")
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				granted, err := s.roles.Bootstrap(ctx, admin)
				if err != nil {
					return err
				}
				if !granted {
					fmt.Fprintf(cmd.OutOrStdout(), "ledger already has an admin: %v\n", s.roles.Members(access.RoleAdmin))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "initialised %s with admin %s\n", o.dbPath, admin)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "account granted admin and minter")
	return cmd
}

// mutation runs a ledger write acting as --as and reports the account it changed.
func (o *options) mutation(use, short string, nargs int, run func(ctx context.Context, s *session, args []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireCaller(); err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				account, err := run(ctx, s, args)
				if err != nil {
					return err
				}
				printBalance(cmd, s, account)
				return nil
			})
		},
	}
}

func mintCmd(o *options) *cobra.Command {
	return o.mutation("mint <to> <amount>", "Mint value into an account (minter only)", 2,
		func(ctx context.Context, s *session, args []string) (string, error) {
			amount, err := parseAmount(args[1])
			if err != nil {
				return "", err
			}
			return args[0], s.engine.Mint(ctx, o.caller, args[0], amount)
		})
}

func burnCmd(o *options) *cobra.Command {
	return o.mutation("burn <amount>", "Burn value from your own account", 1,
		func(ctx context.Context, s *session, args []string) (string, error) {
			amount, err := parseAmount(args[0])
			if err != nil {
				return "", err
			}
			return o.caller, s.engine.Burn(ctx, o.caller, amount)
		})
}

func burnFromCmd(o *options) *cobra.Command {
	return o.mutation("burn-from <from> <amount>", "Burn value from another account (burner only)", 2,
		func(ctx context.Context, s *session, args []string) (string, error) {
			amount, err := parseAmount(args[1])
			if err != nil {
				return "", err
			}
			return args[0], s.engine.BurnFrom(ctx, o.caller, args[0], amount)
		})
}

func transferCmd(o *options) *cobra.Command {
	return o.mutation("transfer <to> <amount>", "Transfer value to a live account", 2,
		func(ctx context.Context, s *session, args []string) (string, error) {
			amount, err := parseAmount(args[1])
			if err != nil {
				return "", err
			}
			return o.caller, s.engine.Transfer(ctx, o.caller, args[0], amount)
		})
}

func approveCmd(o *options) *cobra.Command {
	return o.mutation("approve <spender> <amount>", "Allow spender to move value out of your account", 2,
		func(ctx context.Context, s *session, args []string) (string, error) {
			amount, err := parseAmount(args[1])
			if err != nil {
				return "", err
			}
			return o.caller, s.engine.Approve(ctx, o.caller, args[0], amount)
		})
}

func transferFromCmd(o *options) *cobra.Command {
	return o.mutation("transfer-from <from> <to> <amount>", "Spend an allowance granted by another account", 3,
		func(ctx context.Context, s *session, args []string) (string, error) {
			amount, err := parseAmount(args[2])
			if err != nil {
				return "", err
			}
			return args[0], s.engine.TransferFrom(ctx, o.caller, args[0], args[1], amount)
		})
}

func balanceCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's balance and expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(_ context.Context, s *session) error {
				printBalance(cmd, s, args[0])
				return nil
			})
		},
	}
}

func timeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "time <account>",
		Short: "Show an account's raw time value, negative once exhausted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(_ context.Context, s *session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.engine.TimeOf(args[0]))
				return nil
			})
		},
	}
}

func supplyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Show the total live supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd, func(_ context.Context, s *session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.engine.TotalSupply().Dec())
				return nil
			})
		},
	}
}

func accountsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List every known account with its balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd, func(_ context.Context, s *session) error {
				for _, id := range s.engine.Accounts() {
					printBalance(cmd, s, id)
				}
				return nil
			})
		},
	}
}

func roleCmd(o *options, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <role> <account>",
		Short: "Administer roles (" + verb + ", admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireCaller(); err != nil {
				return err
			}
			role, err := access.ParseRole(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				change := s.roles.Grant
				if verb == "revoke" {
					change = s.roles.Revoke
				}
				if err := change(ctx, o.caller, role, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", role, args[1], s.roles.HasRole(role, args[1]))
				return nil
			})
		},
	}
}

func printBalance(cmd *cobra.Command, s *session, account string) {
	line := fmt.Sprintf("%s\t%d", account, s.engine.BalanceOf(account))
	if at, ok := s.engine.ExpiresAt(account); ok {
		line += "\texpires " + at.Format(time.RFC3339)
	} else {
		line += "\texpired"
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}
