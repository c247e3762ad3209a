package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads and validates the YAML config at configPath. Unlike
// the teacher's loader, a missing file is a hard error here rather
// than silently bootstrapped: per the CLI contract, config open/parse
// failure must exit the process nonzero, and `rspd config generate`
// is the explicit way to create a starter file.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}

	// The default "." key delimiter would split host_mappings keys such
	// as "example.com" into nested maps.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// viper lowercases map keys, so host_mappings is decoded from the
	// raw YAML to keep SNI keys byte-for-byte.
	var raw struct {
		HostMappings map[string]string `yaml:"host_mappings"`
	}
	data, err := os.ReadFile(configPath)
	if err == nil {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("reading host_mappings: %w", err)
	}
	if raw.HostMappings != nil {
		config.HostMappings = raw.HostMappings
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig writes config to configPath as YAML, creating the parent
// directory if necessary.
func SaveConfig(configPath string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// GenerateConfig writes a starter configuration (an empty host mapping
// table) to configPath.
func GenerateConfig(configPath string) error {
	return SaveConfig(configPath, DefaultConfig())
}

// validateConfig enforces the invariants LoadConfig and config
// validate both depend on.
func validateConfig(config *Config) error {
	if len(config.HostMappings) == 0 {
		return fmt.Errorf("host_mappings must contain at least one entry")
	}

	for sni, upstream := range config.HostMappings {
		if sni == "" {
			return fmt.Errorf("host_mappings contains an empty SNI host name")
		}
		if upstream == "" {
			return fmt.Errorf("host_mappings[%q] has an empty upstream host", sni)
		}
	}

	if config.Server.InspectionTimeout <= 0 {
		return fmt.Errorf("server.inspection_timeout must be positive")
	}
	if config.Server.DialTimeout <= 0 {
		return fmt.Errorf("server.dial_timeout must be positive")
	}

	return nil
}

// ConfigExists reports whether a file exists at configPath.
func ConfigExists(configPath string) (bool, error) {
	_, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
