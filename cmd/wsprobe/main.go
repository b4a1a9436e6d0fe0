// wsprobe connects to a server's push channel and prints every decoded event
// to the console. It runs the connection manager on its own, without polling
// or the reconciled view.
//
// Usage: go run ./cmd/wsprobe --config configs/camsync.local.yaml
//
//	go run ./cmd/wsprobe --url ws://localhost:8000/ws --verbose
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/camsync/internal/backoff"
	"github.com/rickgao/camsync/internal/config"
	"github.com/rickgao/camsync/internal/connection"
	"github.com/rickgao/camsync/internal/event"
	"github.com/rickgao/camsync/internal/transport"
	"github.com/rickgao/camsync/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	wsURL := flag.String("url", "", "push channel url, overrides config")
	apiKey := flag.String("key", os.Getenv("CAMSYNC_API_KEY"), "bearer token")
	attempts := flag.Int("attempts", 0, "max consecutive failures, overrides config")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := probeConfig(*configPath, *wsURL, *apiKey, *attempts)
	if err != nil {
		logger.Error("failed to build config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	mgrCfg := connection.DefaultManagerConfig()
	mgrCfg.Client.URL = cfg.Server.WSURL
	mgrCfg.Client.APIKey = cfg.Server.APIKey
	mgrCfg.Client.UserAgent = version.UserAgent()
	mgrCfg.MaxAttempts = cfg.Connection.MaxAttempts
	mgrCfg.Backoff = backoff.Policy{
		Base: cfg.Connection.ReconnectBaseDelay,
		Max:  cfg.Connection.ReconnectMaxDelay,
	}
	mgrCfg.OnStateChange = func(from, to connection.State) {
		logger.Info("state", "from", from, "to", to)
	}
	mgrCfg.OnReconnect = func(a connection.ReconnectAttempt) {
		logger.Warn("reconnecting", "attempt", a.Count, "delay", a.NextDelay, "error", a.Err)
	}

	if cfg.Server.TLS.Enabled() {
		tlsConfig, err := transport.BuildTLSConfig(cfg.Server.TLS)
		if err != nil {
			logger.Error("failed to load TLS settings", "error", err)
			os.Exit(1)
		}
		mgrCfg.Client.TLSConfig = tlsConfig
	}

	mgr := connection.NewManager(mgrCfg, logger)

	counts := make(map[event.Kind]int)
	events := make(chan event.Event, 64)

	logger.Info("connecting", "url", mgrCfg.Client.URL, "max_attempts", mgrCfg.MaxAttempts)
	mgr.Connect(
		func(ev event.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		},
		func(err error) {
			if errors.Is(err, connection.ErrMaxAttempts) {
				logger.Error("giving up", "error", err)
				cancel()
				return
			}
			logger.Warn("channel error", "error", err)
		},
	)

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	logger.Info("probe started - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			mgr.Disconnect()
			stats := mgr.Stats()
			logger.Info("probe stopped",
				"dials", stats.Dials,
				"events", stats.Events,
				"decode_errors", stats.DecodeErrors,
			)
			return
		case ev := <-events:
			counts[ev.Kind()]++
			printEvent(ev, *verbose)
		case <-ticker.C:
			stats := mgr.Stats()
			logger.Info("stats",
				"state", stats.State,
				"events", stats.Events,
				"decode_errors", stats.DecodeErrors,
				"by_kind", counts,
			)
		}
	}
}

// probeConfig loads the config file when given and applies flag overrides.
func probeConfig(path, wsURL, apiKey string, attempts int) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadWithDefaults(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
		def := connection.DefaultManagerConfig()
		cfg.Connection.MaxAttempts = def.MaxAttempts
		cfg.Connection.ReconnectBaseDelay = def.Backoff.Base
		cfg.Connection.ReconnectMaxDelay = def.Backoff.Max
	}

	if wsURL != "" {
		cfg.Server.WSURL = wsURL
	}
	if apiKey != "" {
		cfg.Server.APIKey = apiKey
	}
	if attempts > 0 {
		cfg.Connection.MaxAttempts = attempts
	}

	if cfg.Server.WSURL == "" {
		return nil, errors.New("no push channel url: pass --url or --config")
	}
	return cfg, nil
}

func printEvent(ev event.Event, verbose bool) {
	if verbose {
		data, err := event.Encode(ev)
		if err != nil {
			fmt.Printf("[%s] <encode error: %v>\n", ev.Kind(), err)
			return
		}
		fmt.Printf("[%s] %s\n", ev.Kind(), data)
		return
	}

	switch e := ev.(type) {
	case event.Motion:
		fmt.Printf("[MOTION] detected=%s\n", fmtPtr(e.Detected))
	case event.Status:
		fmt.Printf("[STATUS] streaming=%s recording=%s camera=%s rtsp=%s\n",
			fmtPtr(e.IsStreaming), fmtPtr(e.IsRecording), fmtPtr(e.CameraIndex), fmtPtr(e.RTSPURL))
	case event.Progress:
		fmt.Printf("[PROGRESS] seconds=%s clips=%s\n", fmtPtr(e.SecondsProcessed), fmtPtr(e.ClipsProcessed))
	case event.ClipQueued:
		fmt.Printf("[QUEUED] %s\n", e.ClipPath)
	case event.ClipStarted:
		fmt.Printf("[PROCESSING] %s\n", e.ClipPath)
	case event.ClipComplete:
		fmt.Printf("[COMPLETE] %s\n", e.ClipPath)
	case event.ClipError:
		fmt.Printf("[ERROR] %s: %s\n", e.ClipPath, e.Error)
	case event.Unknown:
		fmt.Printf("[MESSAGE] tag=%q %s\n", e.Tag, e.Raw)
	}
}

func fmtPtr[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
