package config

import "errors"

// ObservabilityConfig gates the New Relic agent. Disabled by default; when
// enabled a license key is required.
type ObservabilityConfig struct {
	Enabled    bool   `koanf:"enabled"`
	LicenseKey string `koanf:"license_key"`

	// Filled in by LoadConfig, not read from the environment.
	ServiceName string `koanf:"-"`
	Environment string `koanf:"-"`
}

// DefaultObservabilityConfig returns the disabled configuration.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{Enabled: false}
}

// Validate checks the config is internally consistent.
func (o *ObservabilityConfig) Validate() error {
	if o.Enabled && o.LicenseKey == "" {
		return errors.New("observability enabled but no license key set")
	}
	return nil
}
