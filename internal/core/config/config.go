package config

import (
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	redisclient "github.com/vietddude/rpcwatch/internal/infra/redis"
	"github.com/vietddude/rpcwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Failover FailoverConfig     `yaml:"failover"`
	Health   HealthConfig       `yaml:"health"`
	Chains   []ChainConfig      `yaml:"chains"`
	Redis    redisclient.Config `yaml:"redis"`
	Database DatabaseConfig     `yaml:"database"`
	Scoring  ScoringConfig      `yaml:"scoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// FailoverConfig tunes every chain's failover manager.
type FailoverConfig struct {
	ErrorThreshold int           `yaml:"error_threshold"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	Backend        string        `yaml:"backend"` // auto, native, jsonrpc
}

// HealthConfig holds settings for the health endpoint.
type HealthConfig struct {
	DefaultChains []string `yaml:"default_chains"`
}

// ChainConfig lists extra endpoints for one chain. They are tried after
// the endpoints found in the environment.
type ChainConfig struct {
	Alias     domain.ChainAlias `yaml:"alias"`
	Endpoints []string          `yaml:"endpoints"`
}

// DatabaseConfig holds probe history storage settings.
type DatabaseConfig struct {
	postgres.Config `yaml:",inline"`
	Retention       time.Duration `yaml:"retention"` // 0 = keep forever
}

// ScoringConfig selects the opportunity scorer.
type ScoringConfig struct {
	ModelPath     string  `yaml:"model_path"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// Fallbacks returns the configured endpoints keyed by canonical alias.
func (c *AppConfig) Fallbacks() map[domain.ChainAlias][]string {
	out := make(map[domain.ChainAlias][]string, len(c.Chains))
	for _, ch := range c.Chains {
		alias := domain.Normalize(string(ch.Alias))
		out[alias] = append(out[alias], ch.Endpoints...)
	}
	return out
}
