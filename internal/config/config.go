package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// BridgeConfig is the root configuration for a bridge instance.
type BridgeConfig struct {
	Producer   ProducerConfig   `yaml:"producer"`
	Fanout     FanoutConfig     `yaml:"fanout"`
	Properties PropertiesConfig `yaml:"properties"`
	Poller     PollerConfig     `yaml:"poller"`
	Journal    JournalConfig    `yaml:"journal"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ProducerConfig holds the producer endpoint and connection settings.
type ProducerConfig struct {
	Scheme   string   `yaml:"scheme" env:"AGP_PRODUCER_SCHEME"`
	Host     string   `yaml:"host" env:"AGP_PRODUCER_HOST"`
	Port     int      `yaml:"port" env:"AGP_PRODUCER_PORT"`
	Path     string   `yaml:"path" env:"AGP_PRODUCER_PATH"`
	Channels []string `yaml:"channels" env:"AGP_PRODUCER_CHANNELS"` // Handshake channels

	RetryPolicy   string        `yaml:"retry_policy" env:"AGP_PRODUCER_RETRY_POLICY"` // constant or exponential
	RetryDelay    time.Duration `yaml:"retry_delay" env:"AGP_PRODUCER_RETRY_DELAY"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay" env:"AGP_PRODUCER_RETRY_MAX_DELAY"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// SetAddress overrides Host and Port from a host:port string.
func (p *ProducerConfig) SetAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse producer address: %w", err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("parse producer port: %w", err)
	}
	p.Host = host
	p.Port = n
	return nil
}

// FanoutConfig holds publisher settings.
type FanoutConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// PropertiesConfig holds the host-plugin property sink settings.
type PropertiesConfig struct {
	Prefix string `yaml:"prefix" env:"AGP_PROPERTIES_PREFIX"`
}

// PollerConfig holds command poller settings.
type PollerConfig struct {
	Disabled                bool          `yaml:"disabled" env:"AGP_POLLER_DISABLED"`
	StatusInterval          time.Duration `yaml:"status_interval"`
	RecommendationsInterval time.Duration `yaml:"recommendations_interval"` // 0 disables
}

// JournalConfig holds the connection journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled" env:"AGP_JOURNAL_ENABLED"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host" env:"AGP_DB_HOST"`
	Port     int    `yaml:"port" env:"AGP_DB_PORT"`
	Name     string `yaml:"name" env:"AGP_DB_NAME"`
	User     string `yaml:"user" env:"AGP_DB_USER"`
	Password string `yaml:"password" env:"AGP_DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"AGP_DB_SSL_MODE"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HTTPConfig holds the health and inspection server settings.
type HTTPConfig struct {
	Host string `yaml:"host" env:"AGP_HTTP_HOST"`
	Port int    `yaml:"port" env:"AGP_HTTP_PORT"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"AGP_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"AGP_LOG_FORMAT"` // text or json
}

// TracingConfig enables OpenTelemetry export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"AGP_TRACING_ENDPOINT"` // OTLP/HTTP URL
	ServiceName string `yaml:"service_name"`
}
