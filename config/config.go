package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	FraudGraph FraudGraphConfig `yaml:"fraudgraph"`
}

// FraudGraphConfig is the project configuration.
type FraudGraphConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Cache      CacheConfig      `yaml:"cache"`
	Rules      RulesConfig      `yaml:"rules"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Timeline   TimelineConfig   `yaml:"timeline"`
	Network    NetworkConfig    `yaml:"network"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig controls the case API client. Retries is a pointer so
// an explicit `retries: 0` disables retrying instead of reading as unset.
type UpstreamConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Retries *int              `yaml:"retries"`
	Headers map[string]string `yaml:"headers"`
}

// CacheConfig controls the case-file cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig controls Redis access.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RulesConfig controls risk tagging rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NormalizerConfig controls raw record normalization.
type NormalizerConfig struct {
	FlagThreshold float64 `yaml:"flag_threshold"`
}

// TimelineConfig controls timeline ordering and escalation detection.
type TimelineConfig struct {
	ProximityWindow time.Duration `yaml:"proximity_window"`
	RapidWindow     time.Duration `yaml:"rapid_window"`
}

// NetworkConfig controls graph clustering and ring classification.
// The thresholds are tuning constants, not fixed law.
type NetworkConfig struct {
	PerSizePoints       int `yaml:"per_size_points"`
	SizeCap             int `yaml:"size_cap"`
	HighRiskNodePoints  int `yaml:"high_risk_node_points"`
	StrongEdgePoints    int `yaml:"strong_edge_points"`
	RingSharedDeviceMin int `yaml:"ring_shared_device_min"`
	RingSharedIPMin     int `yaml:"ring_shared_ip_min"`
	FamilyMaxSize       int `yaml:"family_max_size"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
