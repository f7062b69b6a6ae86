package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"fdp-go/internal/app"
	"fdp-go/internal/config"
	"fdp-go/internal/gateway"
	"fdp-go/internal/vault"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "fdp-gateway",
	Short:        "Serve the configured vault over HTTP",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			defaults, err := app.GetDefaults()
			if err != nil {
				return fmt.Errorf("getting defaults: %w", err)
			}
			path = defaults["config_path"]
		}
		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Gateway.ListenAddr = listen
		}
		if cfg.Vault.Type == "http" {
			return fmt.Errorf("the gateway cannot serve an http vault")
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, logFile, err := app.NewLogger(cfg.LogDir, uuid.New().String(), slog.LevelInfo)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logFile.Close()

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if c, ok := v.(io.Closer); ok {
		defer c.Close()
	}
	if err := v.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("vault setup: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler, err := gateway.New(v, logger, reg)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Gateway.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", srv.Addr, "vault", cfg.Vault.Type)
		fmt.Fprintf(os.Stderr, "fdp-gateway listening on %s (%s vault)\n", srv.Addr, cfg.Vault.Type)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func init() {
	rootCmd.Flags().String("config", "", "Config file (default from FDP_CONFIG_PATH or ~/.config/fdp.toml)")
	rootCmd.Flags().String("listen", "", "Listen address, overrides gateway.listen_addr")
}
