package config

import (
	"os"
	"path/filepath"
	"time"
)

// GetConfigDir returns the default configuration directory (~/.config/rspd)
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config"
	}
	return filepath.Join(homeDir, ".config", "rspd")
}

// Config is the top-level configuration for the proxy.
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// DNS configuration for dial-time upstream resolution
	DNS DNSConfig `mapstructure:"dns"`

	// NetGuard configuration
	NetGuard NetGuardConfig `mapstructure:"netguard"`

	// HostMappings is the SNI host_name -> upstream host table. Keys
	// are matched byte-for-byte against the SNI sent by the client; no
	// normalization, no wildcards.
	HostMappings map[string]string `mapstructure:"host_mappings" yaml:"host_mappings"`
}

// ServerConfig contains server-related settings.
type ServerConfig struct {
	// ListenAddr overrides the build's default listen address
	// (0.0.0.0:443 release / 0.0.0.0:10443 debug) when non-empty.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// InspectionTimeout bounds how long the SNI inspection stage may
	// take before the connection is abandoned. Defaults to 5s, the
	// value the core contract is specified against.
	InspectionTimeout time.Duration `mapstructure:"inspection_timeout" yaml:"inspection_timeout"`

	// DialTimeout bounds connecting to the resolved upstream.
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// DNSConfig controls dial-time resolution of upstream host names.
type DNSConfig struct {
	// Servers is a list of DNS servers queried for upstream host
	// resolution. Empty means use the system resolver.
	Servers []string `mapstructure:"servers" yaml:"servers"`

	// CacheTTL bounds how long a resolved address is cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// NetGuardConfig controls the private-network dial guard.
type NetGuardConfig struct {
	// ExtraGuardedCIDRs are additional CIDR ranges to refuse dialing
	// into, beyond the built-in RFC1918/loopback/link-local set.
	ExtraGuardedCIDRs []string `mapstructure:"extra_guarded_cidrs" yaml:"extra_guarded_cidrs"`
}

// DefaultConfig returns a default configuration with an empty host
// mapping table.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel:          "info",
			InspectionTimeout: 5 * time.Second,
			DialTimeout:       10 * time.Second,
		},
		DNS: DNSConfig{
			CacheTTL: 5 * time.Minute,
		},
		HostMappings: map[string]string{},
	}
}
