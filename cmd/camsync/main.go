// camsync keeps a live view of a camera processing server: it follows the
// push channel, polls as a fallback, and optionally journals events to
// PostgreSQL, republishes the view over MQTT and archives finished clips.
//
// Usage: go run ./cmd/camsync --config configs/camsync.local.yaml
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/archive"
	"github.com/rickgao/camsync/internal/bridge"
	"github.com/rickgao/camsync/internal/config"
	"github.com/rickgao/camsync/internal/database"
	"github.com/rickgao/camsync/internal/journal"
	"github.com/rickgao/camsync/internal/session"
	"github.com/rickgao/camsync/internal/transport"
	"github.com/rickgao/camsync/internal/version"
)

type stopper interface {
	Stop(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "configs/camsync.local.yaml", "path to config file")
	flag.Parse()

	// A missing .env is fine; the config may not reference any variables.
	envErr := godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "config", *configPath, "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting camsync",
		"version", version.String(),
		"config", *configPath,
		"dotenv", envErr == nil,
	)
	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"base_url", cfg.Server.BaseURL,
		"ws_url", cfg.Server.WSURL,
		"mtls", cfg.Server.TLS.Enabled(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var tlsConfig *tls.Config
	if cfg.Server.TLS.Enabled() {
		tlsConfig, err = transport.BuildTLSConfig(cfg.Server.TLS)
		if err != nil {
			logger.Error("failed to load TLS settings", "error", err)
			os.Exit(1)
		}
	}

	opts := append(apiOptions(cfg.Server, tlsConfig), api.WithLogger(logger))
	apiClient := api.NewClient(cfg.Server.BaseURL, cfg.Server.APIKey, opts...)

	sess := session.New(sessionConfig(cfg, tlsConfig), apiClient, logger)
	logger = logger.With("session_id", sess.ID().String())

	// Components are stopped in reverse start order.
	var running []stopper
	var db pinger

	if cfg.Journal.Enabled {
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		db = pool

		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to create journal schema", "error", err)
			os.Exit(1)
		}

		w := journal.NewWriter(journalConfig(cfg.Journal), sess.ID(), pool, logger.With("component", "journal"))
		w.Attach(sess.Bus())
		sess.OnPoll(w.RecordSnapshot)
		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start journal", "error", err)
			os.Exit(1)
		}
		running = append(running, w)
		logger.Info("journal enabled", "host", cfg.Journal.Database.Host, "database", cfg.Journal.Database.Name)
	}

	if cfg.Bridge.Enabled {
		pub, err := bridge.NewMQTTPublisher(cfg.Bridge)
		if err != nil {
			logger.Error("failed to connect to mqtt broker", "error", err)
			os.Exit(1)
		}

		b := bridge.New(pub, cfg.Bridge.Topic, logger.With("component", "bridge"))
		b.Attach(sess.Bus())
		sess.OnChange(b.HandleChange)
		b.Start(ctx)
		running = append(running, b)
	}

	if cfg.Archive.Enabled {
		store, err := archive.NewMinioStore(ctx, cfg.Archive)
		if err != nil {
			logger.Error("failed to open clip archive", "error", err)
			os.Exit(1)
		}

		a := archive.New(archive.DefaultConfig(), apiClient, store, sess.ID().String(), logger.With("component", "archive"))
		a.Attach(sess.Bus())
		a.Start(ctx)
		running = append(running, a)
		logger.Info("clip archive enabled", "endpoint", cfg.Archive.Endpoint, "bucket", store.Bucket())
	}

	ui := newSurfaces(sess)

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(sess, ui, db),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := sess.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	running = append(running, sess)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ind := ui.camera.Indicator()
				logger.Info("status",
					"connection", ind.Connection,
					"live", ind.Live,
					"streaming", ind.Streaming,
					"motion", ind.Motion,
					"progress", ui.chat.ProgressLine(),
				)
			}
		}
	}()

	logger.Info("camsync running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for i := len(running) - 1; i >= 0; i-- {
		if err := running[i].Stop(shutdownCtx); err != nil {
			logger.Warn("component stop failed", "error", err)
		}
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("camsync stopped")
}
