package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ghewgill/sntpc/internal/ntp"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.New("port must be between 1 and 65535, got " + strconv.Itoa(cfg.Port))
	}

	if cfg.Threshold < 0 {
		return errors.New("threshold must not be negative, got " + strconv.FormatInt(cfg.Threshold, 10))
	}

	if err := ntp.ValidateServerAddress(cfg.Server); err != nil {
		return fmt.Errorf("invalid server: %w", err)
	}

	switch cfg.OutputFormat {
	case FormatText, FormatYAML:
	default:
		return fmt.Errorf("output format must be %s or %s, got %q", FormatText, FormatYAML, cfg.OutputFormat)
	}

	return nil
}
