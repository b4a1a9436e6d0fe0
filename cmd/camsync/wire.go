package main

import (
	"crypto/tls"
	"time"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/backoff"
	"github.com/rickgao/camsync/internal/config"
	"github.com/rickgao/camsync/internal/connection"
	"github.com/rickgao/camsync/internal/journal"
	"github.com/rickgao/camsync/internal/poller"
	"github.com/rickgao/camsync/internal/session"
	"github.com/rickgao/camsync/internal/transport"
	"github.com/rickgao/camsync/internal/version"
)

// sessionConfig maps the file configuration onto the session components.
// tlsConfig may be nil.
func sessionConfig(cfg *config.Config, tlsConfig *tls.Config) session.Config {
	c := cfg.Connection

	return session.Config{
		Connection: connection.ManagerConfig{
			Client: connection.ClientConfig{
				URL:              cfg.Server.WSURL,
				APIKey:           cfg.Server.APIKey,
				UserAgent:        version.UserAgent(),
				TLSConfig:        tlsConfig,
				HandshakeTimeout: cfg.Server.Timeout,
				PingInterval:     c.PingInterval,
				PingTimeout:      c.PingTimeout,
				WriteTimeout:     c.WriteTimeout,
				BufferSize:       c.BufferSize,
			},
			MaxAttempts: c.MaxAttempts,
			Backoff: backoff.Policy{
				Base: c.ReconnectBaseDelay,
				Max:  c.ReconnectMaxDelay,
			},
		},
		Poller: poller.Config{
			Interval: cfg.Poller.Interval,
			Timeout:  cfg.Poller.Timeout,
		},
	}
}

func journalConfig(cfg config.JournalConfig) journal.Config {
	return journal.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BufferSize:    cfg.BufferSize,
	}
}

// apiOptions returns the REST client options. With tlsConfig set, requests
// go over HTTP/2 with the client certificate.
func apiOptions(cfg config.ServerConfig, tlsConfig *tls.Config) []api.ClientOption {
	opts := []api.ClientOption{
		api.WithRetries(cfg.MaxRetries, 500*time.Millisecond),
	}
	if tlsConfig != nil {
		opts = append(opts, api.WithHTTPClient(transport.BuildHTTP2Client(tlsConfig, cfg.Timeout)))
	} else {
		opts = append(opts, api.WithTimeout(cfg.Timeout))
	}
	return opts
}
