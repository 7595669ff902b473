package bridge

import (
	"github.com/agpsuite/telemetry-bridge/internal/config"
	"github.com/agpsuite/telemetry-bridge/internal/connection"
	"github.com/agpsuite/telemetry-bridge/internal/fanout"
)

// ConfigFrom maps file configuration onto the pipeline.
func ConfigFrom(cfg *config.BridgeConfig) Config {
	p := cfg.Producer
	return Config{
		Connection: connection.ManagerConfig{
			Scheme:           p.Scheme,
			Host:             p.Host,
			Port:             p.Port,
			Path:             p.Path,
			RetryPolicy:      connection.RetryPolicy(p.RetryPolicy),
			RetryDelay:       p.RetryDelay,
			RetryMaxDelay:    p.RetryMaxDelay,
			HandshakeTimeout: p.HandshakeTimeout,
			PingInterval:     p.PingInterval,
			PingTimeout:      p.PingTimeout,
			WriteTimeout:     p.WriteTimeout,
			BufferSize:       p.BufferSize,
		},
		Channels: p.Channels,
		Fanout:   fanout.Config{QueueCapacity: cfg.Fanout.QueueCapacity},
	}
}
