package config

import "github.com/ghewgill/sntpc/internal/ntp"

// Output formats
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Defaults
const (
	DefaultServer    = "pool.ntp.org"
	DefaultThreshold = 300
)

// DefaultConfig returns the configuration used when no flags are given
func DefaultConfig() *Config {
	cfg := &Config{
		Threshold: DefaultThreshold,
		SetClock:  true,
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for unspecified configuration fields.
// Threshold and the boolean switches have meaningful zero values and are
// left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Port == 0 {
		cfg.Port = ntp.DefaultPort
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = FormatText
	}
}
