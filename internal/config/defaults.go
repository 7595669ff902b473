package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultProducerScheme     = "ws"
	DefaultProducerHost       = "localhost"
	DefaultProducerPort       = 8765
	DefaultProducerPath       = "/"
	DefaultRetryPolicy        = "constant"
	DefaultRetryDelay         = 5 * time.Second
	DefaultRetryMaxDelay      = 60 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultPingInterval       = 30 * time.Second
	DefaultPingTimeout        = 90 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultBufferSize         = 1000
	DefaultQueueCapacity      = 64
	DefaultPropertyPrefix     = "AGP"
	DefaultStatusInterval     = 5 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultJournalBatchSize   = 100
	DefaultJournalFlush       = 1 * time.Second
	DefaultJournalBufferSize  = 256
	DefaultHTTPHost           = "127.0.0.1"
	DefaultHTTPPort           = 8766
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultTracingServiceName = "agp-telemetry-bridge"
)

// DefaultChannels are the feeds requested in the producer handshake.
var DefaultChannels = []string{"telemetry", "analysis", "strategy", "recommendations", "live_timing"}

func (c *BridgeConfig) applyDefaults() {
	// Producer defaults
	p := &c.Producer
	if p.Scheme == "" {
		p.Scheme = DefaultProducerScheme
	}
	if p.Host == "" {
		p.Host = DefaultProducerHost
	}
	if p.Port == 0 {
		p.Port = DefaultProducerPort
	}
	if p.Path == "" {
		p.Path = DefaultProducerPath
	}
	if len(p.Channels) == 0 {
		p.Channels = append([]string(nil), DefaultChannels...)
	}
	if p.RetryPolicy == "" {
		p.RetryPolicy = DefaultRetryPolicy
	}
	if p.RetryDelay == 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.RetryMaxDelay == 0 {
		p.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if p.HandshakeTimeout == 0 {
		p.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if p.PingInterval == 0 {
		p.PingInterval = DefaultPingInterval
	}
	if p.PingTimeout == 0 {
		p.PingTimeout = DefaultPingTimeout
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = DefaultWriteTimeout
	}
	if p.BufferSize == 0 {
		p.BufferSize = DefaultBufferSize
	}

	if c.Fanout.QueueCapacity == 0 {
		c.Fanout.QueueCapacity = DefaultQueueCapacity
	}
	if c.Properties.Prefix == "" {
		c.Properties.Prefix = DefaultPropertyPrefix
	}
	if c.Poller.StatusInterval == 0 {
		c.Poller.StatusInterval = DefaultStatusInterval
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	if c.HTTP.Host == "" {
		c.HTTP.Host = DefaultHTTPHost
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = DefaultTracingServiceName
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
