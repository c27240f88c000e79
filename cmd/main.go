package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/certquiz-backend/internal/app"
	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/platform/envutil"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:          "certquiz",
	Short:        "Certification quiz backend",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), app.Role{HTTP: true})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal analysis workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), app.Role{Worker: true})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the HTTP API and the workers in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), app.Role{HTTP: true, Worker: true})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, log, err := build(ctx, app.Role{})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		if err := a.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if p, _ := cmd.Flags().GetString("config"); p != "" {
			return os.Setenv("CONFIG_FILE", p)
		}
		return nil
	}
	rootCmd.AddCommand(serveCmd, workerCmd, allCmd, migrateCmd)
}

func build(ctx context.Context, role app.Role) (*app.App, *logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, log, role)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	return a, log, nil
}

func run(ctx context.Context, role app.Role) error {
	a, _, err := build(ctx, role)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	g, ctx := errgroup.WithContext(ctx)
	if role.HTTP {
		g.Go(func() error { return a.RunHTTP(ctx) })
	}
	if role.Worker {
		g.Go(func() error { return a.RunWorker(ctx) })
	}
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
