// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	gatetls "github.com/gatehouse/gatehouse/internal/tls"
	"github.com/gatehouse/gatehouse/internal/xdg"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP API",
		Long: `Start the authentication HTTP API along with the metrics and
health endpoints. The user store backend (postgres or memory) is selected
once at startup from configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("gatehouse", version, cfg.LogFormat, cfg.RedactFields)

	slog.Info("starting gatehouse",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"log_format", cfg.LogFormat,
	)

	// Store backend is a closed set chosen once here, never per request.
	var users auth.UserRepository
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
		slog.Info("connected to database")
	case config.StoreMemory:
		users = memory.NewUserRepository()
		slog.Warn("using in-memory store, state is lost on restart")
	default:
		return oops.Code("CONFIG_INVALID").With("store", cfg.Store).Errorf("unknown store backend")
	}

	svc, err := auth.NewServiceWithLogger(users, auth.NewArgon2idHasher(), auth.NewRandomTokenGenerator(), slog.Default())
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obs := observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		obsErrCh, err = obs.Start()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := obs.Stop(shutdownCtx); stopErr != nil {
				slog.Error("observability server shutdown failed", "error", stopErr)
			}
		}()
		metrics = obs.Metrics()
	}

	handler, err := httpapi.NewHandler(svc, metrics, slog.Default())
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.TLS {
		tlsConfig, tlsErr := gatetls.EnsureServerTLS(xdg.CertsDir())
		if tlsErr != nil {
			return oops.Code("TLS_SETUP_FAILED").Wrap(tlsErr)
		}
		httpSrv.TLSConfig = tlsConfig
	}

	serveErrCh := make(chan error, 1)
	go func() {
		var serveErr error
		if cfg.TLS {
			// Certificates come from TLSConfig, not files.
			serveErr = httpSrv.ListenAndServeTLS("", "")
		} else {
			serveErr = httpSrv.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			serveErrCh <- serveErr
		}
	}()

	slog.Info("http api listening", "addr", cfg.ListenAddr, "tls", cfg.TLS)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-serveErrCh:
		return oops.Code("SERVE_FAILED").Wrap(err)
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			return oops.Code("SERVE_FAILED").With("component", "observability").Wrap(err)
		}
	case <-ctx.Done():
		slog.Info("shutting down", "reason", "context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}

	slog.Info("http api stopped")
	return nil
}
