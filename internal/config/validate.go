package config

import (
	"errors"
	"fmt"
	"log/slog"
)

// Validate checks that all required fields are set and values are valid.
func (c *BridgeConfig) Validate() error {
	p := c.Producer
	if p.Host == "" {
		return errors.New("producer.host is required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("producer.port must be between 1 and 65535, got %d", p.Port)
	}
	if p.Scheme != "ws" && p.Scheme != "wss" {
		return fmt.Errorf("producer.scheme must be ws or wss, got %q", p.Scheme)
	}
	if len(p.Channels) == 0 {
		return errors.New("producer.channels must not be empty")
	}
	switch p.RetryPolicy {
	case "constant", "exponential":
	default:
		return fmt.Errorf("producer.retry_policy must be constant or exponential, got %q", p.RetryPolicy)
	}
	if p.RetryDelay <= 0 {
		return errors.New("producer.retry_delay must be > 0")
	}
	if p.RetryPolicy == "exponential" && p.RetryMaxDelay < p.RetryDelay {
		return fmt.Errorf("producer.retry_max_delay (%s) cannot be below retry_delay (%s)", p.RetryMaxDelay, p.RetryDelay)
	}
	if p.BufferSize < 1 {
		return errors.New("producer.buffer_size must be >= 1")
	}

	if c.Fanout.QueueCapacity < 1 {
		return errors.New("fanout.queue_capacity must be >= 1")
	}

	if !c.Poller.Disabled && c.Poller.StatusInterval <= 0 {
		return errors.New("poller.status_interval must be > 0")
	}
	if c.Poller.RecommendationsInterval < 0 {
		return errors.New("poller.recommendations_interval must be >= 0")
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.FlushInterval <= 0 {
			return errors.New("journal.flush_interval must be > 0")
		}
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535, got %d", c.HTTP.Port)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
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
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
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

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
