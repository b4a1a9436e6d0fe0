package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL            = "http://localhost:8000"
	DefaultServerTimeout      = 10 * time.Second
	DefaultMaxRetries         = 2
	DefaultMaxAttempts        = 5
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultPingInterval       = 20 * time.Second
	DefaultPingTimeout        = 10 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultConnBufferSize     = 256
	DefaultPollInterval       = 2 * time.Second
	DefaultPollTimeout        = 5 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultBatchSize          = 200
	DefaultFlushInterval      = 1 * time.Second
	DefaultJournalBufferSize  = 4096
	DefaultMQTTPort           = 1883
	DefaultMQTTTopic          = "camsync"
	DefaultArchiveBucket      = "camsync-clips"
	DefaultHealthPort         = 8081
	DefaultLogLevel           = "info"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = DefaultBaseURL
	}
	if c.Server.WSURL == "" {
		if ws, err := DeriveWSURL(c.Server.BaseURL); err == nil {
			c.Server.WSURL = ws
		}
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = DefaultServerTimeout
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = DefaultMaxRetries
	}

	// Connection defaults
	if c.Connection.MaxAttempts == 0 {
		c.Connection.MaxAttempts = DefaultMaxAttempts
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultConnBufferSize
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	// Bridge defaults
	if c.Bridge.Port == 0 {
		c.Bridge.Port = DefaultMQTTPort
	}
	if c.Bridge.Topic == "" {
		c.Bridge.Topic = DefaultMQTTTopic
		if c.Instance.ID != "" {
			c.Bridge.Topic += "/" + c.Instance.ID
		}
	}
	if c.Bridge.ClientID == "" && c.Instance.ID != "" {
		c.Bridge.ClientID = "camsync-" + c.Instance.ID
	}

	if c.Archive.Bucket == "" {
		c.Archive.Bucket = DefaultArchiveBucket
	}
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
