// Package config loads configuration for the NBIO engine, DNS client, and
// HTTP server from a YAML file with environment variable overrides, using
// Viper.
//
// Environment variables use the HYDRAIO_ prefix and underscore-separated
// keys:
//   - HYDRAIO_SERVER_HOST     -> server.host
//   - HYDRAIO_DNS_NAMESERVERS -> dns.nameservers (comma-separated)
package config

import (
	"os"
	"strings"
)

// ServerConfig holds the HTTP server's listening and limit knobs.
type ServerConfig struct {
	Host                 string `yaml:"host"                   mapstructure:"host"`
	Port                 int    `yaml:"port"                   mapstructure:"port"`
	ListenBacklog        int    `yaml:"listen_backlog"         mapstructure:"listen_backlog"`
	MaxHeaderCount       int    `yaml:"max_header_count"       mapstructure:"max_header_count"`
	MaxLineLength        int    `yaml:"max_line_length"        mapstructure:"max_line_length"`
	MaxBodyBytes         int64  `yaml:"max_body_bytes"         mapstructure:"max_body_bytes"`
	IdleKeepAliveSeconds int    `yaml:"idle_keepalive_seconds" mapstructure:"idle_keepalive_seconds"`
	ShutdownDrainSeconds int    `yaml:"shutdown_drain_seconds" mapstructure:"shutdown_drain_seconds"`
}

// DNSConfig holds the DNS client's nameserver, timeout and cache knobs.
type DNSConfig struct {
	Nameservers         []string `yaml:"nameservers"           mapstructure:"nameservers"`
	NameserverTimeoutMS int      `yaml:"nameserver_timeout_ms" mapstructure:"nameserver_timeout_ms"`
	MaxTTLSeconds        int     `yaml:"max_ttl_seconds"       mapstructure:"max_ttl_seconds"`
	NegativeTTLSeconds   int     `yaml:"negative_ttl_seconds"  mapstructure:"negative_ttl_seconds"`
	HostsPath            string  `yaml:"hosts_path"            mapstructure:"hosts_path"`
	ResolvConfPath       string  `yaml:"resolv_conf_path"      mapstructure:"resolv_conf_path"`
}

// WebSocketConfig holds WebSocket framing limits.
type WebSocketConfig struct {
	MaxFrameBytes   int `yaml:"max_frame_bytes"   mapstructure:"max_frame_bytes"`
	MaxMessageBytes int `yaml:"max_message_bytes" mapstructure:"max_message_bytes"`
	CloseTimeoutMS  int `yaml:"close_timeout_ms"  mapstructure:"close_timeout_ms"`
}

// LoggingConfig controls the ambient slog setup (see internal/logging).
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"    mapstructure:"server"`
	DNS       DNSConfig       `yaml:"dns"       mapstructure:"dns"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"   mapstructure:"logging"`
}

// ResolveConfigPath determines the config file path from a CLI flag or the
// HYDRAIO_CONFIG environment variable, flag taking precedence.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("HYDRAIO_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable
// overrides and hardcoded defaults. This is the package's main entry point.
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
