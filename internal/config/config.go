// Package config loads runtime configuration for the matchd and ingestd
// daemons from built-in defaults, a config file, and environment
// variables (prefixed TALARIA_), in that order of increasing precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the two daemons need to start.
type Config struct {
	// Match is the in-process order-placement wire server.
	Match struct {
		Address       string `mapstructure:"address"`
		Port          int    `mapstructure:"port"`
		ArenaCapacity int    `mapstructure:"arena_capacity"`
	} `mapstructure:"match"`

	// Ingest is the market-data ingest session.
	Ingest struct {
		WebsocketURL string `mapstructure:"websocket_url"`
		SnapshotURL  string `mapstructure:"snapshot_url"`
		PriceTick    uint64 `mapstructure:"price_tick"`
		SizeTick     uint64 `mapstructure:"size_tick"`
	} `mapstructure:"ingest"`

	Metrics struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"metrics"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configFile (if non-empty) over the built-in defaults, and
// lets TALARIA_ environment variables override both.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TALARIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("match.address", "0.0.0.0")
	v.SetDefault("match.port", 7700)
	v.SetDefault("match.arena_capacity", 1<<20)
	v.SetDefault("ingest.websocket_url", "wss://stream.example.com/ws")
	v.SetDefault("ingest.snapshot_url", "https://api.example.com/depth")
	v.SetDefault("ingest.price_tick", uint64(1000))
	v.SetDefault("ingest.size_tick", uint64(1000))
	v.SetDefault("metrics.address", "0.0.0.0:9090")
	v.SetDefault("log_level", "info")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
