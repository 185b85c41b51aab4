// Command penaltyd runs the group penalty engine as an HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penalty-hub/penalty-engine/config"
	"github.com/penalty-hub/penalty-engine/internal/domain/penalty"
	"github.com/penalty-hub/penalty-engine/internal/engine"
	"github.com/penalty-hub/penalty-engine/internal/infrastructure/persistence/file"
	"github.com/penalty-hub/penalty-engine/internal/infrastructure/persistence/memory"
	"github.com/penalty-hub/penalty-engine/internal/infrastructure/persistence/postgres"
	"github.com/penalty-hub/penalty-engine/internal/infrastructure/persistence/redis"
	"github.com/penalty-hub/penalty-engine/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/penalty-hub/penalty-engine/internal/interface/http"
	"github.com/penalty-hub/penalty-engine/pkg/clock"
	"github.com/penalty-hub/penalty-engine/pkg/logger"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "penaltyd",
	Short: "Group penalty tracking engine",
	Long: `penaltyd tracks violation rules and penalty records per group,
with per-member demerit totals, violation rankings, and an optional
automatic monthly reset.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "penaltyd %s\n", version)
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token TOKEN",
	Short: "Print the bcrypt hash of an admin token for HTTP_ADMIN_TOKEN_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := httpapi.HashAdminToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(hashTokenCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Log.Level),
		AddCaller: cfg.Log.AddCaller,
	})

	log.Info("starting penaltyd",
		logger.String("version", version),
		logger.String("environment", string(cfg.App.Environment)),
		logger.String("storage_backend", cfg.Storage.Backend),
		logger.String("timezone", cfg.App.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage backend %s: %w", cfg.Storage.Backend, err)
	}
	defer cleanup()

	registry := engine.NewRegistry(store, clock.NewSystem(cfg.App.Location), log)

	server := httpapi.NewServer(httpapi.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxHeaderBytes: 1 << 20,
		EnableMetrics:  cfg.HTTP.MetricsEnabled,
		AdminTokenHash: cfg.HTTP.AdminTokenHash,
	}, registry, log)

	errCh := server.StartAsync()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown did not complete cleanly", logger.Err(err))
		return err
	}

	log.Info("penaltyd stopped")
	return nil
}

// buildStore constructs the configured state store and a cleanup function.
func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (penalty.StateStore, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.NewStore(), noop, nil

	case config.BackendFile:
		store, err := file.NewStore(cfg.Storage.FileDir, log)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.BackendPostgres:
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, noop, err
		}
		return postgres.NewStore(conn, log), conn.Close, nil

	case config.BackendRedis:
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Storage.RedisHost
		redisCfg.Port = cfg.Storage.RedisPort
		redisCfg.Password = cfg.Storage.RedisPassword
		redisCfg.DB = cfg.Storage.RedisDB
		store, err := redis.NewStore(redisCfg, log)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown backend %q", cfg.Storage.Backend)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
