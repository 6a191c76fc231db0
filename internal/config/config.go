package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/hydraio/hydraio/internal/helpers"
)

func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HYDRAIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.listen_backlog", 1024)
	v.SetDefault("server.max_header_count", 100)
	v.SetDefault("server.max_line_length", 8192)
	v.SetDefault("server.max_body_bytes", 10*1024*1024)
	v.SetDefault("server.idle_keepalive_seconds", 30)
	v.SetDefault("server.shutdown_drain_seconds", 10)

	v.SetDefault("dns.nameservers", []string{})
	v.SetDefault("dns.nameserver_timeout_ms", 1000)
	v.SetDefault("dns.max_ttl_seconds", 3600)
	v.SetDefault("dns.negative_ttl_seconds", 60)
	v.SetDefault("dns.hosts_path", defaultHostsPath)
	v.SetDefault("dns.resolv_conf_path", defaultResolvConfPath)

	v.SetDefault("websocket.max_frame_bytes", 1<<20)
	v.SetDefault("websocket.max_message_bytes", 8<<20)
	v.SetDefault("websocket.close_timeout_ms", 5000)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})
}

func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	loadServerConfig(v, cfg)
	loadDNSConfig(v, cfg)
	loadWebSocketConfig(v, cfg)
	loadLoggingConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadServerConfig(v *viper.Viper, cfg *Config) {
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.ListenBacklog = v.GetInt("server.listen_backlog")
	cfg.Server.MaxHeaderCount = v.GetInt("server.max_header_count")
	cfg.Server.MaxLineLength = v.GetInt("server.max_line_length")
	cfg.Server.MaxBodyBytes = v.GetInt64("server.max_body_bytes")
	cfg.Server.IdleKeepAliveSeconds = v.GetInt("server.idle_keepalive_seconds")
	cfg.Server.ShutdownDrainSeconds = v.GetInt("server.shutdown_drain_seconds")
}

func loadDNSConfig(v *viper.Viper, cfg *Config) {
	cfg.DNS.Nameservers = getStringSliceOrSplit(v, "dns.nameservers")
	cfg.DNS.NameserverTimeoutMS = v.GetInt("dns.nameserver_timeout_ms")
	cfg.DNS.MaxTTLSeconds = v.GetInt("dns.max_ttl_seconds")
	cfg.DNS.NegativeTTLSeconds = v.GetInt("dns.negative_ttl_seconds")
	cfg.DNS.HostsPath = v.GetString("dns.hosts_path")
	cfg.DNS.ResolvConfPath = v.GetString("dns.resolv_conf_path")
}

func loadWebSocketConfig(v *viper.Viper, cfg *Config) {
	cfg.WebSocket.MaxFrameBytes = v.GetInt("websocket.max_frame_bytes")
	cfg.WebSocket.MaxMessageBytes = v.GetInt("websocket.max_message_bytes")
	cfg.WebSocket.CloseTimeoutMS = v.GetInt("websocket.close_timeout_ms")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

// getStringSliceOrSplit handles both a YAML list and a comma-separated
// string (the shape an env var override arrives in).
func getStringSliceOrSplit(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		// GetStringSlice would split a plain string on whitespace, not commas.
		return trimNonEmpty(strings.Split(s, ","))
	}
	if slice := v.GetStringSlice(key); len(slice) > 0 {
		return trimNonEmpty(slice)
	}
	if s := v.GetString(key); s != "" {
		return trimNonEmpty(strings.Split(s, ","))
	}
	return nil
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}
	if cfg.Server.IdleKeepAliveSeconds <= 0 {
		cfg.Server.IdleKeepAliveSeconds = 30
	}
	if cfg.DNS.NameserverTimeoutMS <= 0 {
		cfg.DNS.NameserverTimeoutMS = 1000
	}
	if cfg.DNS.MaxTTLSeconds <= 0 {
		cfg.DNS.MaxTTLSeconds = 3600
	}
	if cfg.DNS.NegativeTTLSeconds <= 0 {
		cfg.DNS.NegativeTTLSeconds = 60
	}

	// Clamp the header-parsing and WebSocket framing limits into sane
	// ranges rather than trusting whatever a config file or env override
	// supplied verbatim: a zero or negative value would otherwise make the
	// http/ws layers reject every request or frame outright.
	cfg.Server.MaxHeaderCount = helpers.ClampInt(cfg.Server.MaxHeaderCount, 1, 1000)
	cfg.Server.MaxLineLength = helpers.ClampInt(cfg.Server.MaxLineLength, 256, 64<<10)
	cfg.WebSocket.MaxFrameBytes = helpers.ClampInt(cfg.WebSocket.MaxFrameBytes, 125, 64<<20)
	cfg.WebSocket.MaxMessageBytes = helpers.ClampInt(cfg.WebSocket.MaxMessageBytes, cfg.WebSocket.MaxFrameBytes, 256<<20)
	cfg.WebSocket.CloseTimeoutMS = helpers.ClampInt(cfg.WebSocket.CloseTimeoutMS, 100, 60_000)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}
	return nil
}
