package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/rpcwatch/internal/health"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
)

// Load reads configuration from a YAML file. An empty path yields the
// defaults so the service can run from environment variables alone.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Failover.ErrorThreshold == 0 {
		cfg.Failover.ErrorThreshold = failover.DefaultErrorThreshold
	}
	if cfg.Failover.SweepInterval == 0 {
		cfg.Failover.SweepInterval = failover.DefaultSweepInterval
	}
	if cfg.Failover.ProbeTimeout == 0 {
		cfg.Failover.ProbeTimeout = failover.DefaultProbeTimeout
	}
	if cfg.Failover.Backend == "" {
		cfg.Failover.Backend = "auto"
	}
	if len(cfg.Health.DefaultChains) == 0 {
		cfg.Health.DefaultChains = append([]string(nil), health.DefaultChains...)
	}
	if cfg.Scoring.MinConfidence == 0 {
		cfg.Scoring.MinConfidence = 0.5
	}
}

// Validate rejects values no component can work with.
func (c *AppConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Failover.ErrorThreshold < 0 {
		return fmt.Errorf("invalid failover.error_threshold %d", c.Failover.ErrorThreshold)
	}
	if c.Failover.SweepInterval < 0 || c.Failover.ProbeTimeout < 0 {
		return fmt.Errorf("failover intervals must be positive")
	}
	switch strings.ToLower(c.Failover.Backend) {
	case "auto", "native", "jsonrpc":
	default:
		return fmt.Errorf("unknown failover.backend %q", c.Failover.Backend)
	}
	if c.Scoring.MinConfidence < 0 || c.Scoring.MinConfidence > 1 {
		return fmt.Errorf("scoring.min_confidence must be within [0, 1]")
	}
	for i, ch := range c.Chains {
		if strings.TrimSpace(string(ch.Alias)) == "" {
			return fmt.Errorf("chains[%d]: alias is required", i)
		}
	}
	return nil
}
