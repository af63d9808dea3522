package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "internal/infrastructure/migration/sql"

type options struct {
	path     string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Fulfillment database migration tool",
		Long: `Applies the versioned postgres schema.

Migrations are compiled into the binary. Pass --path to run the SQL files
of a directory instead.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.path, "path", "", "Migrations directory (default: embedded migrations)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger) error { return m.Down() })
			},
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations (negative n rolls back)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger) error { return m.Steps(n) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(opts, func(m *migration.Migrator, log *zap.Logger) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					if version == 0 {
						log.Info("No migrations applied")
						return nil
					}
					log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Record a version as applied without running it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger) error { return m.Force(version) })
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a new up/down migration pair",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				dir := opts.path
				if dir == "" {
					dir = defaultMigrationsPath
				}
				mf, err := migration.CreateMigration(dir, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %06d %s\n  %s\n  %s\n", mf.Version, mf.Name, mf.UpPath, mf.DownPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List available migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := listMigrations(opts.path)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations found")
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), "  -", name)
				}
				return nil
			},
		},
	)
	return root
}

func listMigrations(dir string) ([]string, error) {
	if dir == "" {
		return migration.Embedded()
	}
	return migration.ListMigrations(os.DirFS(dir))
}

// withMigrator loads the configuration, connects and runs fn
func withMigrator(opts *options, fn func(*migration.Migrator, *zap.Logger) error) error {
	log, err := logger.New(logger.Config{Level: opts.logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		return fmt.Errorf("sqlite schemas are managed by auto-migration at startup")
	}

	m, err := openMigrator(&cfg.Database, opts.path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m, log)
}

func openMigrator(cfg *config.DatabaseConfig, dir string, log *zap.Logger) (*migration.Migrator, error) {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
		}
		log.Info("Using migrations directory", zap.String("path", abs))
		return migration.NewFromDir(cfg.DSN(), abs, log)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	m, err := migration.New(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}
