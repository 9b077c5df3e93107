package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/swayhq/sway/internal/core/api"
	"github.com/swayhq/sway/internal/core/config"
	"github.com/swayhq/sway/internal/core/db"
	"github.com/swayhq/sway/internal/core/logging"
	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/rules"
)

// Version is the CLI version.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "sway",
	Short:         "sway validation engine tooling",
	Long:          `sway compiles type descriptors into validation rule trees, validates values against them and serves them over an admin gRPC API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(logLevel, logFormat, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// errViolations makes the process exit non-zero after violations were printed.
var errViolations = errors.New("validation failed")

// loadConfig reads --config and SWAY_ variables; --db-url wins when set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := map[string]*pflag.Flag{"database.url": cmd.Flag("db-url")}
	cfg, err := config.Load(config.New(), configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the configured database and applies pending migrations.
func openDatabase(cfg *config.Config) (*sqlx.DB, *db.Queries, error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("--db-url or SWAY_DATABASE_URL required")
	}
	database, queries, err := db.OpenMigrated(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, queries, nil
}

// loadSchemas compiles every object declared in the descriptor documents.
func loadSchemas(paths []string) (*api.Schemas, error) {
	catalog, err := descriptor.LoadCatalog(paths...)
	if err != nil {
		return nil, err
	}
	return api.CompileSchemas(catalog, rules.NewEngine(catalog, nil))
}
