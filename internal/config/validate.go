package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Server.validate(); err != nil {
		return err
	}

	if c.Connection.MaxAttempts < 1 {
		return errors.New("connection.max_attempts must be >= 1")
	}
	if c.Connection.ReconnectBaseDelay < 0 {
		return errors.New("connection.reconnect_base_delay must be >= 0")
	}
	if c.Connection.ReconnectMaxDelay < c.Connection.ReconnectBaseDelay {
		return fmt.Errorf("connection.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Connection.ReconnectMaxDelay, c.Connection.ReconnectBaseDelay)
	}

	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.Timeout <= 0 {
		return errors.New("poller.timeout must be > 0")
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Bridge.Enabled {
		if c.Bridge.Host == "" {
			return errors.New("bridge.host is required")
		}
		if c.Bridge.Port < 1 || c.Bridge.Port > 65535 {
			return fmt.Errorf("bridge.port must be between 1 and 65535, got %d", c.Bridge.Port)
		}
	}

	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			return errors.New("archive.endpoint is required")
		}
		if c.Archive.Bucket == "" {
			return errors.New("archive.bucket is required")
		}
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (s *ServerConfig) validate() error {
	if s.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	if u, err := url.Parse(s.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("server.base_url must be an http or https url, got %q", s.BaseURL)
	}
	if s.WSURL == "" {
		return errors.New("server.ws_url is required")
	}
	if u, err := url.Parse(s.WSURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("server.ws_url must be a ws or wss url, got %q", s.WSURL)
	}
	if s.MaxRetries < 0 {
		return errors.New("server.max_retries must be >= 0")
	}
	if (s.TLS.CertPath == "") != (s.TLS.KeyPath == "") {
		return errors.New("server.tls.cert_path and server.tls.key_path must be set together")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
