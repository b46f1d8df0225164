package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"expresso/internal/cli"
	"expresso/internal/config"
	"expresso/internal/services"
)

type rootFlags struct {
	api      string
	clientID int64
	offline  bool
	logLevel string
}

func main() {
	cli.LoadEnvFile()
	ctx, cancel := cli.ShutdownContext(context.Background())

	root, closeApp := newRootCmd()
	err := root.ExecuteContext(ctx)
	closeApp()
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, services.UserMessage(err))
		os.Exit(1)
	}
}

// newRootCmd returns the command tree and a func closing the session opened
// by the executed command, if any.
func newRootCmd() (*cobra.Command, func()) {
	var (
		flags rootFlags
		a     *app
	)
	root := &cobra.Command{
		Use:           "expresso",
		Short:         "Personal finance ledger in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["session"] == "none" {
				return nil
			}
			cfg := config.Load()
			if cmd.Flags().Changed("api") {
				cfg.APIBaseURL = flags.api
			}
			if cmd.Flags().Changed("client") {
				cfg.ClientID = flags.clientID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := cli.SetupCLILogger(flags.logLevel, cmd.ErrOrStderr())

			var err error
			a, err = newApp(runCtx(cmd), cfg, flags.offline, logger)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.api, "api", "", "collaborator base URL (default $API_BASE_URL)")
	pf.Int64Var(&flags.clientID, "client", 0, "owner id (default $CLIENT_ID)")
	pf.BoolVar(&flags.offline, "offline", false, "use an in-process ledger instead of the API")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "debug, info, warn or error")

	current := func() *app { return a }
	root.AddCommand(
		newSummaryCmd(current),
		newAccountsCmd(current),
		newGoalsCmd(current),
		newTransactionsCmd(current),
		newCategoriesCmd(current),
		newAddTransactionCmd(current),
		newTransferCmd(current),
		newDepositCmd(current),
		newWithdrawCmd(current),
		newDeleteTransactionCmd(current),
		newCreateAccountCmd(current),
		newCreateGoalCmd(current),
		newEventsCmd(),
	)
	return root, func() {
		if a != nil {
			a.close()
			a = nil
		}
	}
}

// runCtx returns the command context, never nil.
func runCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
