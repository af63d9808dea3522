// Command fulfillctl runs fulfillment operations from the shell against the
// configured database, without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/bootstrap"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(config.Load).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand
type cli struct {
	load     func() (*config.Config, error)
	tenant   string
	logLevel string
	app      *bootstrap.App
}

func newRootCmd(load func() (*config.Config, error)) *cobra.Command {
	c := &cli{load: load}
	root := &cobra.Command{
		Use:          "fulfillctl",
		Short:        "Operate the fulfillment service from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.tenant, "tenant", "", "Tenant ID (UUID) to act for")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		c.batchCmd(),
		c.fulfillCmd(),
		c.reverseCmd(),
		c.importTimeCmd(),
		c.reconcileCmd(),
		c.outboxCmd(),
	)
	return root
}

// open builds the application on first use
func (c *cli) open(ctx context.Context) (*bootstrap.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := c.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(logger.Config{Level: c.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	c.app = app
	return app, nil
}

// withApp opens the application for one command and closes it afterwards
func (c *cli) withApp(fn func(cmd *cobra.Command, args []string, app *bootstrap.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		app, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, c.close(cmd.Context()))
		}()
		return fn(cmd, args, app)
	}
}

func (c *cli) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	log := c.app.Logger
	err := c.app.Close(context.WithoutCancel(ctx))
	_ = log.Sync()
	c.app = nil
	return err
}

func (c *cli) tenantID() (uuid.UUID, error) {
	if c.tenant == "" {
		return uuid.Nil, errors.New("--tenant is required")
	}
	id, err := uuid.Parse(c.tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant %q: %w", c.tenant, err)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Run one batch pass over pending orders of every tenant",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
			summary, err := app.Batch.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		}),
	}
}

func (c *cli) fulfillCmd() *cobra.Command {
	var usageLimit int
	cmd := &cobra.Command{
		Use:   "fulfill <order-id>",
		Short: "Fulfill one sales order now",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid order id %q: %w", args[0], err)
			}
			limit := app.Fulfillment.Settings().UsageLimit
			if cmd.Flags().Changed("usage-limit") {
				limit = usageLimit
			}
			report, err := app.Fulfillment.ProcessOrder(cmd.Context(), tenantID, orderID, appfulfillment.NewUnitBudget(limit))
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		}),
	}
	cmd.Flags().IntVar(&usageLimit, "usage-limit", 0, "Override the configured usage budget")
	return cmd
}

func (c *cli) reverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <fulfillment-id>",
		Short: "Reverse the inventory effect of a completed fulfillment",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			fulfillmentID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid fulfillment id %q: %w", args[0], err)
			}
			outcome, err := app.Reversal.ReverseByID(cmd.Context(), tenantID, fulfillmentID)
			if err != nil {
				return err
			}
			return printJSON(cmd, outcome)
		}),
	}
}

func (c *cli) importTimeCmd() *cobra.Command {
	var fromStorage bool
	cmd := &cobra.Command{
		Use:   "import-time <file>",
		Short: "Import worked hours from a CSV file",
		Long: `Imports worked hours from a local CSV file. With --from-storage the
argument is an object key in the configured file store instead.`,
		Args: cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}

			if fromStorage {
				result, err := app.TimeImport.ImportFromStorage(cmd.Context(), tenantID, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			result, err := app.TimeImport.Import(cmd.Context(), tenantID, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		}),
	}
	cmd.Flags().BoolVar(&fromStorage, "from-storage", false, "Read the file from the configured file store")
	return cmd
}

func (c *cli) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <batch-id>",
		Short: "Apply a staged stock count batch to stock levels",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
			tenantID, err := c.tenantID()
			if err != nil {
				return err
			}
			result, err := app.Reconciliation.Reconcile(cmd.Context(), tenantID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		}),
	}
}

func (c *cli) outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and requeue outbox deliveries",
	}

	var page, pageSize int
	dead := &cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered entries",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
			result, err := app.OutboxAdmin.DeadLetters(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		}),
	}
	dead.Flags().IntVar(&page, "page", 1, "Page number")
	dead.Flags().IntVar(&pageSize, "page-size", 20, "Entries per page (max 100)")

	var all bool
	retry := &cobra.Command{
		Use:   "retry [entry-id]",
		Short: "Requeue one dead-lettered entry, or all of them with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: c.withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
			if all {
				n, err := app.OutboxAdmin.RetryAll(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]int64{"requeued": n})
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}
			view, err := app.OutboxAdmin.Retry(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		}),
	}
	retry.Flags().BoolVar(&all, "all", false, "Requeue every dead-lettered entry")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Count entries per delivery status",
			Args:  cobra.NoArgs,
			RunE: c.withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
				stats, err := app.OutboxAdmin.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			}),
		},
		dead,
		retry,
	)
	return cmd
}
