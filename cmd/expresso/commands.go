package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"expresso/internal/aggregate"
	"expresso/internal/amqp"
	"expresso/internal/cli"
	"expresso/internal/core"
	"expresso/internal/ledger"
	"expresso/internal/refresh"
	"expresso/internal/services"
)

type session func() *app

func newSummaryCmd(s session) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Balances, monthly totals and goal progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := s()
			snap, err := a.snapshot()
			if err != nil {
				return err
			}
			f, err := monthFilter(month)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderSummary(out, snap, f, a.views)
			if drift := aggregate.Reconcile(snap); len(drift) > 0 {
				renderDrift(out, drift)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default current month)")
	return cmd
}

func newAccountsCmd(s session) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := s().snapshot()
			if err != nil {
				return err
			}
			renderAccounts(cmd.OutOrStdout(), snap.Accounts())
			return nil
		},
	}
}

func newGoalsCmd(s session) *cobra.Command {
	return &cobra.Command{
		Use:   "goals",
		Short: "List goals with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := s()
			snap, err := a.snapshot()
			if err != nil {
				return err
			}
			renderGoals(cmd.OutOrStdout(), a.views.Goals(snap))
			return nil
		},
	}
}

func newTransactionsCmd(s session) *cobra.Command {
	var (
		limit   int
		month   string
		account int64
	)
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := s().snapshot()
			if err != nil {
				return err
			}
			if month == "" && account == 0 {
				renderTransactions(cmd.OutOrStdout(), aggregate.Recent(snap, limit))
				return nil
			}
			f, err := monthFilter(month)
			if err != nil {
				return err
			}
			if account != 0 {
				f = f.WithAccount(account)
			}
			renderReport(cmd.OutOrStdout(), aggregate.Report(snap, f))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of transactions, 0 for all")
	cmd.Flags().StringVar(&month, "month", "", "report for a month as YYYY-MM")
	cmd.Flags().Int64Var(&account, "account", 0, "restrict the report to one account")
	return cmd
}

func newCategoriesCmd(s session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and manage categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := s().snapshot()
			if err != nil {
				return err
			}
			renderCategories(cmd.OutOrStdout(), snap.Categories())
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := s().coord.CreateCategory(runCtx(cmd), services.CategoryName{Name: args[0]})
				return report(cmd, err, "Categoria '%s' criada (#%d).", c.Name, c.ID)
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a category",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := s().coord.RenameCategory(runCtx(cmd), id, services.CategoryName{Name: args[1]})
				return report(cmd, err, "Categoria #%d renomeada para '%s'.", c.ID, c.Name)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return report(cmd, s().coord.DeleteCategory(runCtx(cmd), id), "Categoria #%d removida.", id)
			},
		},
	)
	return cmd
}

func newAddTransactionCmd(s session) *cobra.Command {
	var in services.NewTransaction
	cmd := &cobra.Command{
		Use:   "add-transaction",
		Short: "Record a receipt or an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.OperatedAt == "" {
				in.OperatedAt = now()
			}
			res, err := s().coord.CreateTransaction(runCtx(cmd), in)
			if res.Outcome == services.OutcomeBothCreated || res.Outcome == services.OutcomeCategoryOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Categoria '%s' criada (#%d).\n", res.Category.Name, res.Category.ID)
			}
			return report(cmd, err, "Transação #%d registrada: %s.", res.Transaction.ID, core.FormatBRL(res.Transaction.Amount))
		},
	}
	f := cmd.Flags()
	f.Int64Var(&in.AccountID, "account", 0, "account id")
	f.Int64Var(&in.CategoryID, "category", 0, "existing category id")
	f.StringVar(&in.NewCategory, "new-category", "", "create this category first")
	f.StringVar(&in.Kind, "kind", string(core.Expense), "RECEITA or DESPESA")
	f.StringVar(&in.Amount, "amount", "", "positive amount, e.g. 25,50")
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVar(&in.OperatedAt, "at", "", "operation time as YYYY-MM-DDTHH:MM (default now)")
	return cmd
}

func newTransferCmd(s session) *cobra.Command {
	var in services.NewTransfer
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.OperatedAt == "" {
				in.OperatedAt = now()
			}
			legs, err := s().coord.CreateTransfer(runCtx(cmd), in)
			return reportLegs(cmd, err, legs)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&in.SourceID, "from", 0, "source account id")
	f.Int64Var(&in.DestinationID, "to", 0, "destination account id")
	f.StringVar(&in.Amount, "amount", "", "positive amount")
	f.StringVar(&in.OperatedAt, "at", "", "operation time (default now)")
	return cmd
}

func newDepositCmd(s session) *cobra.Command {
	var in services.GoalDeposit
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Put money into a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.OperatedAt == "" {
				in.OperatedAt = now()
			}
			legs, err := s().coord.DepositToGoal(runCtx(cmd), in)
			return reportLegs(cmd, err, legs)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&in.GoalID, "goal", 0, "goal id")
	f.Int64Var(&in.SourceID, "from", 0, "source account id")
	f.StringVar(&in.Amount, "amount", "", "positive amount")
	f.StringVar(&in.OperatedAt, "at", "", "operation time (default now)")
	return cmd
}

func newWithdrawCmd(s session) *cobra.Command {
	var in services.GoalWithdrawal
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Take money out of a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.OperatedAt == "" {
				in.OperatedAt = now()
			}
			legs, err := s().coord.WithdrawFromGoal(runCtx(cmd), in)
			return reportLegs(cmd, err, legs)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&in.GoalID, "goal", 0, "goal id")
	f.Int64Var(&in.DestinationID, "to", 0, "destination account id")
	f.StringVar(&in.Amount, "amount", "", "positive amount")
	f.StringVar(&in.OperatedAt, "at", "", "operation time (default now)")
	return cmd
}

func newDeleteTransactionCmd(s session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-transaction <id>",
		Short: "Delete a transaction, or both legs of a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(cmd, s().coord.DeleteTransaction(runCtx(cmd), id), "Transação #%d removida.", id)
		},
	}
}

func newCreateAccountCmd(s session) *cobra.Command {
	var in services.NewAccount
	cmd := &cobra.Command{
		Use:   "create-account <name>",
		Short: "Open a checking account or wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			acct, err := s().coord.CreateAccount(runCtx(cmd), in)
			return report(cmd, err, "Conta '%s' criada (#%d).", acct.Name, acct.ID)
		},
	}
	cmd.Flags().StringVar(&in.Kind, "kind", core.Checking.WireName(), "CONTA_CORRENTE or CARTEIRA")
	cmd.Flags().StringVar(&in.OpeningBalance, "opening", "", "opening balance, may be negative")
	return cmd
}

func newCreateGoalCmd(s session) *cobra.Command {
	var in services.NewGoal
	cmd := &cobra.Command{
		Use:   "create-goal <name>",
		Short: "Create a savings goal and its vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			g, err := s().coord.CreateGoal(runCtx(cmd), in)
			return report(cmd, err, "Meta '%s' criada (#%d).", g.Name, g.ID)
		},
	}
	cmd.Flags().StringVar(&in.Target, "target", "", "target amount")
	cmd.Flags().StringVar(&in.TargetDate, "by", "", "target date as YYYY-MM-DD")
	return cmd
}

// newEventsCmd tails ledger events from the broker. It needs no session.
func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "events",
		Short:       "Print ledger events published by the server",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"session": "none"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if !cfg.AMQPEnabled() {
				return errors.New("AMQP_URL is not set")
			}
			logger := cli.SetupCLILogger(cfg.LogLevel, cmd.ErrOrStderr())
			ctx := runCtx(cmd)

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeEvents(ctx, func(_ context.Context, e ledger.Event) error {
				fmt.Fprintf(out, "%s  %-22s owner=%d id=%d\n", e.Timestamp.Format(time.DateTime), e.Type, e.OwnerID, e.EntityID)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// report prints the success line, or the success line plus a warning when
// only the refresh after the mutation failed.
func report(cmd *cobra.Command, err error, format string, args ...any) error {
	var partial *refresh.PartialError
	switch {
	case err == nil:
	case errors.As(err, &partial):
		defer fmt.Fprintln(cmd.ErrOrStderr(), services.UserMessage(err))
	default:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	return nil
}

func reportLegs(cmd *cobra.Command, err error, legs []core.Transaction) error {
	if len(legs) != 2 {
		return report(cmd, err, "Transferência registrada.")
	}
	return report(cmd, err, "Transferência de %s registrada (#%d, #%d).", core.FormatBRL(legs[1].Amount), legs[0].ID, legs[1].ID)
}

func monthFilter(month string) (aggregate.Filter, error) {
	if month == "" {
		t := time.Now()
		return aggregate.MonthFilter(t.Year(), int(t.Month())), nil
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return aggregate.Filter{}, fmt.Errorf("mês inválido %q: use AAAA-MM", month)
	}
	return aggregate.MonthFilter(t.Year(), int(t.Month())), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("identificador inválido %q", s)
	}
	return id, nil
}

func now() string {
	return time.Now().Format(core.TimestampLayout)
}
