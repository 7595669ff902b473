package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
producer:
  host: 192.168.1.20
  port: 9000
  retry_delay: 2s
  channels: [telemetry, strategy]
properties:
  prefix: RIG
journal:
  enabled: true
  database:
    host: localhost
    port: 5432
    name: agp
    user: bridge
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Producer.Host != "192.168.1.20" {
		t.Errorf("Producer.Host = %q, want %q", cfg.Producer.Host, "192.168.1.20")
	}
	if cfg.Producer.Port != 9000 {
		t.Errorf("Producer.Port = %d, want %d", cfg.Producer.Port, 9000)
	}
	if cfg.Producer.RetryDelay != 2*time.Second {
		t.Errorf("Producer.RetryDelay = %v, want %v", cfg.Producer.RetryDelay, 2*time.Second)
	}
	if !slices.Equal(cfg.Producer.Channels, []string{"telemetry", "strategy"}) {
		t.Errorf("Producer.Channels = %v", cfg.Producer.Channels)
	}
	if cfg.Properties.Prefix != "RIG" {
		t.Errorf("Properties.Prefix = %q, want %q", cfg.Properties.Prefix, "RIG")
	}
	if !cfg.Journal.Enabled || cfg.Journal.Database.Name != "agp" {
		t.Errorf("Journal = %+v, want enabled with database agp", cfg.Journal)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
journal:
  database:
    host: localhost
    name: agp
    user: bridge
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Journal.Database.Password != "secret123" {
		t.Errorf("Journal.Database.Password = %q, want %q", cfg.Journal.Database.Password, "secret123")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AGP_PRODUCER_HOST", "sim-rig")
	t.Setenv("AGP_PRODUCER_PORT", "8800")
	t.Setenv("AGP_PRODUCER_RETRY_DELAY", "750ms")
	t.Setenv("AGP_PRODUCER_CHANNELS", "telemetry,live_timing")
	t.Setenv("AGP_LOG_LEVEL", "debug")

	yaml := `
producer:
  host: localhost
  port: 8765
logging:
  level: info
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Producer.Host != "sim-rig" {
		t.Errorf("Producer.Host = %q, want %q", cfg.Producer.Host, "sim-rig")
	}
	if cfg.Producer.Port != 8800 {
		t.Errorf("Producer.Port = %d, want %d", cfg.Producer.Port, 8800)
	}
	if cfg.Producer.RetryDelay != 750*time.Millisecond {
		t.Errorf("Producer.RetryDelay = %v, want %v", cfg.Producer.RetryDelay, 750*time.Millisecond)
	}
	if !slices.Equal(cfg.Producer.Channels, []string{"telemetry", "live_timing"}) {
		t.Errorf("Producer.Channels = %v", cfg.Producer.Channels)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("AGP_PRODUCER_PORT", "not-a-port")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error for malformed AGP_PRODUCER_PORT")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "producer:\n  path: /ws\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Producer.Host != DefaultProducerHost {
		t.Errorf("Producer.Host = %q, want default %q", cfg.Producer.Host, DefaultProducerHost)
	}
	if cfg.Producer.Port != DefaultProducerPort {
		t.Errorf("Producer.Port = %d, want default %d", cfg.Producer.Port, DefaultProducerPort)
	}
	if cfg.Producer.Path != "/ws" {
		t.Errorf("Producer.Path = %q, want %q", cfg.Producer.Path, "/ws")
	}
	if cfg.Producer.RetryDelay != DefaultRetryDelay {
		t.Errorf("Producer.RetryDelay = %v, want default %v", cfg.Producer.RetryDelay, DefaultRetryDelay)
	}
	if !slices.Equal(cfg.Producer.Channels, DefaultChannels) {
		t.Errorf("Producer.Channels = %v, want default %v", cfg.Producer.Channels, DefaultChannels)
	}
	if cfg.Properties.Prefix != DefaultPropertyPrefix {
		t.Errorf("Properties.Prefix = %q, want default %q", cfg.Properties.Prefix, DefaultPropertyPrefix)
	}
	if cfg.Journal.Database.Port != DefaultDBPort {
		t.Errorf("Journal.Database.Port = %d, want default %d", cfg.Journal.Database.Port, DefaultDBPort)
	}
	if cfg.Journal.Database.SSLMode != DefaultDBSSLMode {
		t.Errorf("Journal.Database.SSLMode = %q, want default %q", cfg.Journal.Database.SSLMode, DefaultDBSSLMode)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want default %d", cfg.HTTP.Port, DefaultHTTPPort)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "journal:\n  enabled: true\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("LoadAndValidate() expected error")
	}
	want := "validate config: journal.database.host is required"
	if err.Error() != want {
		t.Errorf("LoadAndValidate() error = %q, want %q", err.Error(), want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *BridgeConfig)
		wantErr string
	}{
		{
			name:    "defaults",
			mutate:  func(c *BridgeConfig) {},
			wantErr: "",
		},
		{
			name:    "missing producer host",
			mutate:  func(c *BridgeConfig) { c.Producer.Host = "" },
			wantErr: "producer.host is required",
		},
		{
			name:    "port out of range",
			mutate:  func(c *BridgeConfig) { c.Producer.Port = 70000 },
			wantErr: "producer.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *BridgeConfig) { c.Producer.Scheme = "http" },
			wantErr: `producer.scheme must be ws or wss, got "http"`,
		},
		{
			name:    "unknown retry policy",
			mutate:  func(c *BridgeConfig) { c.Producer.RetryPolicy = "linear" },
			wantErr: `producer.retry_policy must be constant or exponential, got "linear"`,
		},
		{
			name: "exponential max below delay",
			mutate: func(c *BridgeConfig) {
				c.Producer.RetryPolicy = "exponential"
				c.Producer.RetryDelay = 10 * time.Second
				c.Producer.RetryMaxDelay = time.Second
			},
			wantErr: "producer.retry_max_delay (1s) cannot be below retry_delay (10s)",
		},
		{
			name:    "journal disabled skips database",
			mutate:  func(c *BridgeConfig) { c.Journal.Database.Host = "" },
			wantErr: "",
		},
		{
			name: "journal missing password",
			mutate: func(c *BridgeConfig) {
				c.Journal.Enabled = true
				c.Journal.Database = DBConfig{Host: "localhost", Name: "agp", User: "bridge", MaxConns: 4}
			},
			wantErr: "journal.database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *BridgeConfig) {
				c.Journal.Enabled = true
				c.Journal.Database = DBConfig{Host: "localhost", Name: "agp", User: "bridge", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "journal.database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *BridgeConfig) { c.Logging.Level = "loud" },
			wantErr: `logging.level: unknown level "loud"`,
		},
		{
			name:    "unknown log format",
			mutate:  func(c *BridgeConfig) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name: "disabled poller ignores interval",
			mutate: func(c *BridgeConfig) {
				c.Poller.Disabled = true
				c.Poller.StatusInterval = 0
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &BridgeConfig{}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	if err != nil {
		t.Fatalf("ParseLevel failed: %v", err)
	}
	if level != slog.LevelWarn {
		t.Errorf("ParseLevel(warn) = %v, want %v", level, slog.LevelWarn)
	}
}

func TestProducerConfig_SetAddress(t *testing.T) {
	p := ProducerConfig{Host: "localhost", Port: 8765}
	if err := p.SetAddress("10.0.0.5:9001"); err != nil {
		t.Fatalf("SetAddress failed: %v", err)
	}
	if p.Host != "10.0.0.5" || p.Port != 9001 {
		t.Errorf("got %s:%d, want 10.0.0.5:9001", p.Host, p.Port)
	}

	for _, addr := range []string{"no-port", "host:http", "host:"} {
		q := ProducerConfig{Host: "localhost", Port: 8765}
		if err := q.SetAddress(addr); err == nil {
			t.Errorf("SetAddress(%q) succeeded, want error", addr)
		}
		if q.Host != "localhost" || q.Port != 8765 {
			t.Errorf("SetAddress(%q) modified config on error", addr)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
