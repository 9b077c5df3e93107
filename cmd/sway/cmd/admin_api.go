package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/swayhq/sway/internal/core/api"
	"github.com/swayhq/sway/internal/core/auth"
	"github.com/swayhq/sway/internal/core/config"
	"github.com/swayhq/sway/internal/core/server"
)

var adminAPICmd = &cobra.Command{
	Use:   "admin-api <doc>...",
	Short: "Start the admin gRPC validation service",
	Long: `Serve the schemas declared in the descriptor documents over the
sway.admin.v1.Validation gRPC service. Calls are authenticated with admin API
keys (see "sway keys create") sent in the x-api-key metadata header.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdminAPI,
}

func init() {
	rootCmd.AddCommand(adminAPICmd)
	adminAPICmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	adminAPICmd.Flags().Int("port", 50061, "gRPC server port")
}

func runAdminAPI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Admin.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Admin.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set SWAY_HMAC_SECRET environment variable)")
	}

	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	schemas, err := loadSchemas(args)
	if err != nil {
		return err
	}

	logger := slog.Default()
	grpcServer, err := server.NewGRPCServer(
		cfg.Admin,
		api.NewValidationService(schemas, logger),
		auth.NewAuthenticator(secrets, queries),
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting admin API", "version", Version, "addr", cfg.Admin.Addr(), "schemas", schemas.Len())
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(ctx)
	}
}
