// Package config loads the settings of the store server and the CLI from a
// YAML file, then applies environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/internal/observability"
)

// Config is the whole configuration file.
type Config struct {
	Server  ServerConfig                `yaml:"server"`
	Client  ClientConfig                `yaml:"client"`
	Logging LoggingConfig               `yaml:"logging"`
	Tracing observability.TracingConfig `yaml:"tracing"`
}

// ServerConfig configures cmd/netstore-server.
type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpcAddr"`
	MetricsAddr     string        `yaml:"metricsAddr"` // empty disables /metrics
	Dataset         string        `yaml:"dataset"`     // optional YAML or JSON dataset loaded at start
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ClientConfig configures the client side of the store.
type ClientConfig struct {
	Target     string        `yaml:"target"`
	Strategy   string        `yaml:"strategy"` // none | lazy | collection
	RetryDelay time.Duration `yaml:"retryDelay"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"addSource"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddr:        ":50061",
			MetricsAddr:     ":9091",
			ShutdownTimeout: 5 * time.Second,
		},
		Client: ClientConfig{
			Target:     "localhost:50061",
			Strategy:   string(client.StrategyLazy),
			RetryDelay: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig("netstore"),
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults without consulting the
// environment.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables:
//
//	NETSTORE_LISTEN_ADDR, NETSTORE_METRICS_ADDR, NETSTORE_DATASET  server
//	NETSTORE_ADDR, NETSTORE_STRATEGY, NETSTORE_RETRY_DELAY          client
//	LOG_LEVEL, LOG_FORMAT                                           logging
//	NETSTORE_TRACING_*, NETSTORE_OTLP_ENDPOINT                      tracing
func (c *Config) ApplyEnv() {
	setString(&c.Server.GRPCAddr, "NETSTORE_LISTEN_ADDR")
	setString(&c.Server.MetricsAddr, "NETSTORE_METRICS_ADDR")
	setString(&c.Server.Dataset, "NETSTORE_DATASET")
	setString(&c.Client.Target, "NETSTORE_ADDR")
	setString(&c.Client.Strategy, "NETSTORE_STRATEGY")
	if raw := os.Getenv("NETSTORE_RETRY_DELAY"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			c.Client.RetryDelay = d
		}
	}
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	c.Tracing = observability.TracingConfigFromEnv(c.Tracing)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if _, err := client.ParseStrategy(c.Client.Strategy); err != nil {
		return fmt.Errorf("client.strategy: %w", err)
	}
	if c.Client.RetryDelay < 0 {
		return fmt.Errorf("client.retryDelay must not be negative, got %s", c.Client.RetryDelay)
	}
	if c.Server.GRPCAddr == "" {
		return errors.New("server.grpcAddr must be set")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("tracing.sampleRatio must be within [0,1], got %v", r)
	}
	return nil
}

// ParsedStrategy returns the preloading strategy, lazy when the name is
// unknown. Validate reports unknown names.
func (c ClientConfig) ParsedStrategy() client.Strategy {
	s, err := client.ParseStrategy(c.Strategy)
	if err != nil {
		return client.StrategyLazy
	}
	return s
}

// ClientOptions turns the client section into client.New options.
func (c ClientConfig) ClientOptions() []client.Option {
	return []client.Option{client.WithRetryDelay(c.RetryDelay)}
}

// Logger builds the logger the logging section describes.
func (c LoggingConfig) Logger() logging.Logger {
	return logging.New(logging.Config{
		Level:     c.Level,
		Format:    c.Format,
		AddSource: c.AddSource,
	})
}
