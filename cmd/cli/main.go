package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	sqliteRepo "github.com/iho/fundledger/internal/adapter/repository/sqlite"
	"github.com/iho/fundledger/internal/infrastructure/config"
	"github.com/iho/fundledger/internal/infrastructure/logger"
	"github.com/iho/fundledger/internal/infrastructure/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	baseURL string
	actor   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "fundledger-cli",
		Short:         "FundLedger CLI tool",
		Long:          `A command line interface for operating the FundLedger transaction engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the FundLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", "", "Actor ID sent as X-Actor-ID")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newLedgerCmd(opts),
		newAccountsCmd(opts),
		newTransactionsCmd(opts),
		newPositionsCmd(opts),
		&cobra.Command{
			Use:   "portfolio",
			Short: "Show the actor's portfolio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, opts, http.MethodGet, "/api/v1/portfolio")
			},
		},
	)

	return rootCmd
}

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations on the configured store",
	}

	run := func(up bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(logger.Config{Level: cfg.LogLevel, Format: "console"}, cmd.ErrOrStderr())
			return migrate(cfg, log, up)
		}
	}

	migrateCmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run(true)},
		&cobra.Command{Use: "down", Short: "Roll back the last migration", Args: cobra.NoArgs, RunE: run(false)},
	)
	return migrateCmd
}

func migrate(cfg *config.Config, log zerolog.Logger, up bool) error {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		if up {
			return postgres.RunMigrations(cfg.DatabaseURL, log)
		}
		return postgres.RunMigrationsDown(cfg.DatabaseURL, log)
	case config.DriverSQLite:
		if up {
			return sqliteRepo.RunMigrations(cfg.SQLitePath, log)
		}
		return sqliteRepo.RunMigrationsDown(cfg.SQLitePath, log)
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newLedgerCmd(opts *options) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	ledgerCmd.AddCommand(
		&cobra.Command{
			Use:   "consistency",
			Short: "Check ledger consistency",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return checkConsistency(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "report",
			Short: "Reconcile every account and print the report",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, opts, http.MethodGet, "/api/v1/ledger/reconciliation")
			},
		},
	)
	return ledgerCmd
}

func newAccountsCmd(opts *options) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	accountsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accounts visible to the actor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, opts, http.MethodGet, "/api/v1/accounts")
			},
		},
		idCommand(opts, "get", "Show an account", http.MethodGet, "/api/v1/accounts/%s"),
		idCommand(opts, "reconcile", "Reconcile an account against its entries", http.MethodGet, "/api/v1/accounts/%s/reconciliation"),
		idCommand(opts, "suspend", "Suspend an account", http.MethodPost, "/api/v1/accounts/%s/suspend"),
		idCommand(opts, "reactivate", "Reactivate a suspended account", http.MethodPost, "/api/v1/accounts/%s/reactivate"),
		idCommand(opts, "close", "Close an account", http.MethodPost, "/api/v1/accounts/%s/close"),
	)
	return accountsCmd
}

func newTransactionsCmd(opts *options) *cobra.Command {
	transactionsCmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction operations",
	}

	transactionsCmd.AddCommand(
		idCommand(opts, "get", "Show a transaction", http.MethodGet, "/api/v1/transactions/%s"),
		idCommand(opts, "execute", "Execute a pending transaction", http.MethodPost, "/api/v1/transactions/%s/execute"),
		idCommand(opts, "cancel", "Cancel a pending transaction", http.MethodPost, "/api/v1/transactions/%s/cancel"),
	)
	return transactionsCmd
}

func newPositionsCmd(opts *options) *cobra.Command {
	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Position operations",
	}

	positionsCmd.AddCommand(
		idCommand(opts, "get", "Show a position", http.MethodGet, "/api/v1/positions/%s"),
		idCommand(opts, "redeem", "Redeem a position", http.MethodPost, "/api/v1/positions/%s/redeem"),
	)
	return positionsCmd
}

func idCommand(opts *options, use, short, method, pathFormat string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, opts, method, fmt.Sprintf(pathFormat, args[0]))
		},
	}
}

func checkConsistency(cmd *cobra.Command, opts *options) error {
	status, body, err := request(cmd.Context(), opts, http.MethodGet, "/api/v1/ledger/consistency")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var result struct {
		Consistent bool   `json:"consistent"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", status, err)
	}

	if status != http.StatusOK || !result.Consistent {
		fmt.Fprintf(out, "Consistency check FAILED (Status: %d)\n", status)
		if result.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", result.Error)
		}
		return fmt.Errorf("ledger is inconsistent")
	}

	fmt.Fprintln(out, "Consistency check PASSED")
	return nil
}

// call performs a request and pretty-prints the JSON response. Non-2xx
// statuses are returned as errors after the body is printed.
func call(cmd *cobra.Command, opts *options, method, path string) error {
	status, body, err := request(cmd.Context(), opts, method, path)
	if err != nil {
		return err
	}

	printJSON(cmd.OutOrStdout(), body)

	if status < 200 || status >= 300 {
		return fmt.Errorf("request failed: %s %s returned %d", method, path, status)
	}
	return nil
}

func request(ctx context.Context, opts *options, method, path string) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(opts.baseURL, "/")+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if opts.actor != "" {
		req.Header.Set("X-Actor-ID", opts.actor)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func printJSON(w io.Writer, body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Fprintln(w, string(body))
		return
	}
	fmt.Fprintln(w, buf.String())
}
