package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/cmd/cli/commands"
	"github.com/jakechorley/hourbank/internal/config"
	"github.com/jakechorley/hourbank/pkg/clients/gmailclient"
	"github.com/jakechorley/hourbank/pkg/clients/sheetsclient"
	"github.com/jakechorley/hourbank/pkg/core/idissuer"
	"github.com/jakechorley/hourbank/pkg/core/services"
	"github.com/jakechorley/hourbank/pkg/db"
	"github.com/jakechorley/hourbank/pkg/locks"
	"github.com/jakechorley/hourbank/pkg/postgres"
	"github.com/jakechorley/hourbank/pkg/sheetssql"
	"github.com/jakechorley/hourbank/pkg/sqlite"
	"github.com/jakechorley/hourbank/pkg/utils"
	"github.com/jakechorley/hourbank/pkg/utils/logging"
)

var (
	env      string
	logLevel string
	logDir   string
	noEmail  bool
	app      = &commands.AppContext{}
	closers  []func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hourbank",
		Short: "Hour bank - book work, rest and overtime hours",
		Long:  `A CLI tool for listing free hour slots, booking them, and managing the reservations of the work, rest and overtime pools.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Console log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "Directory for JSON log files")
	rootCmd.PersistentFlags().BoolVar(&noEmail, "no-email", false, "Do not send notification mails")

	rootCmd.AddCommand(commands.FreeSlotsCmd(app))
	rootCmd.AddCommand(commands.CampaignsCmd(app))
	rootCmd.AddCommand(commands.CanUseOvertimeCmd(app))
	rootCmd.AddCommand(commands.ReserveCmd(app))
	rootCmd.AddCommand(commands.CancelCmd(app))
	rootCmd.AddCommand(commands.CancelBatchCmd(app))
	rootCmd.AddCommand(commands.UpdateCmd(app))
	rootCmd.AddCommand(commands.MyReservationsCmd(app))
	rootCmd.AddCommand(commands.SummaryCmd(app))
	rootCmd.AddCommand(commands.ReviewCmd(app))
	rootCmd.AddCommand(commands.ExportLockerCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, clients, storage and the reservation core
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, logDir, logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("backend", app.Cfg.Backend))

	// Load credentials. A service account key wins over the OAuth desktop flow.
	creds := utils.Credentials{Subject: app.Cfg.GmailSender}
	creds.ServiceAccount, err = config.FindServiceAccount(env)
	if err != nil {
		return fmt.Errorf("failed to load service account: %w", err)
	}
	if creds.ServiceAccount == nil {
		app.Logger.Info("Loading OAuth client configuration")
		creds.OAuthClient, err = config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return fmt.Errorf("failed to load OAuth client config: %w", err)
		}
	}

	httpClient, err := utils.HTTPClient(app.Ctx, creds, env, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to authorize: %w", err)
	}

	// Initialize sheets client
	app.Logger.Info("Initializing sheets client")
	sheetsClient, err := sheetsclient.NewClient(app.Ctx, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	tables := sheetsclient.NewTables(sheetsClient, app.Cfg)

	// Initialize storage
	store, locker, err := openStore(sheetsClient)
	if err != nil {
		return err
	}

	core := &services.Core{
		Store:          store,
		Capacity:       tables,
		AllowList:      tables,
		Issuer:         idissuer.New(store, locker, app.Cfg.LockTimeout, app.Logger),
		Locks:          locker,
		Location:       app.Cfg.Location(),
		Logger:         app.Logger,
		SubtractBooked: app.Cfg.SubtractBooked,
		LockWait:       app.Cfg.LockTimeout,
		AppURL:         app.Cfg.AppURL,
		LockerExcluded: app.Cfg.IsLockerExcluded,
	}
	if app.Cfg.RosterSheetID != "" {
		core.Roster = tables
	}
	if app.Cfg.LockerEnabled() {
		core.Locker = tables
	}

	// Initialize gmail client
	if noEmail {
		app.Logger.Info("Notification mails disabled")
	} else {
		app.Logger.Info("Initializing gmail client")
		gmailClient, err := gmailclient.NewClient(app.Ctx, httpClient, app.Cfg.GmailUserID, app.Cfg.GmailSender)
		if err != nil {
			return fmt.Errorf("failed to create gmail client: %w", err)
		}
		core.Notifier = gmailClient
	}

	app.Core = core
	app.Logger.Info("Application initialized successfully")
	return nil
}

// openStore connects the configured backend. Postgres also provides the locks so that several
// processes share them; the other backends lock in-process.
func openStore(sheetsClient *sheetsclient.Client) (db.Database, locks.Locker, error) {
	switch app.Cfg.Backend {
	case config.BackendPostgres:
		app.Logger.Info("Connecting to postgres")
		pg, err := postgres.NewDB(app.Ctx, app.Cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if err := pg.RunMigrations(app.Ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pg, pg, nil

	case config.BackendSQLite:
		app.Logger.Info("Opening sqlite database", zap.String("path", app.Cfg.SQLitePath))
		lite, err := sqlite.Open(app.Cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		closers = append(closers, func() { lite.Close() })
		return lite, locks.NewLocal(), nil

	default:
		app.Logger.Info("Initializing database schema")
		schema, err := db.Schema()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database schema: %w", err)
		}
		app.Logger.Debug("Database schema created", zap.Int("tables", len(schema.Tables)))

		app.Logger.Info("Connecting to database", zap.String("spreadsheet_id", app.Cfg.DatabaseSheetID))
		ssqlDB, err := sheetssql.NewDB(sheetsClient, app.Cfg.DatabaseSheetID, schema)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return db.NewDB(ssqlDB), locks.NewLocal(), nil
	}
}
