// Package config provides configuration loading and management for questgraph.
package config

import (
	"path/filepath"
	"time"
)

// Dir is the default directory holding the config file, database and snapshots.
const Dir = ".questgraph"

// Provider kinds.
const (
	ProviderGraphQL = "graphql"
	ProviderFile    = "file"
)

// Config is the root configuration.
type Config struct {
	GameMode  string          `json:"game_mode" mapstructure:"game_mode"`
	Database  string          `json:"database"  mapstructure:"database"`
	Provider  ProviderConfig  `json:"provider"  mapstructure:"provider"`
	Server    ServerConfig    `json:"server"    mapstructure:"server"`
	Engine    EngineConfig    `json:"engine"    mapstructure:"engine"`
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`
}

// ProviderConfig describes where game data comes from.
type ProviderConfig struct {
	Kind     string        `json:"kind"               mapstructure:"kind"`
	Endpoint string        `json:"endpoint,omitempty" mapstructure:"endpoint"`
	File     string        `json:"file,omitempty"     mapstructure:"file"`
	Lang     string        `json:"lang,omitempty"     mapstructure:"lang"`
	Timeout  time.Duration `json:"timeout,omitempty"  mapstructure:"timeout"`
	Refresh  string        `json:"refresh,omitempty"  mapstructure:"refresh"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// EngineConfig tunes resolution passes.
type EngineConfig struct {
	Parallelism int `json:"parallelism,omitempty" mapstructure:"parallelism"`
}

// RetentionConfig bounds the progress journal. Zero disables a limit.
type RetentionConfig struct {
	KeepLast int `json:"keep_last" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days" mapstructure:"keep_days"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		GameMode: "pvp",
		Database: filepath.Join(Dir, "questgraph.db"),
		Provider: ProviderConfig{
			Kind:    ProviderGraphQL,
			File:    filepath.Join(Dir, "gamedata.json"),
			Lang:    "en",
			Timeout: 30 * time.Second,
			Refresh: "@every 6h",
		},
		Server:    ServerConfig{Addr: "127.0.0.1:8080"},
		Engine:    EngineConfig{Parallelism: 4},
		Retention: RetentionConfig{KeepLast: 500, KeepDays: 90},
	}
}

// Settings returns the config as dotted viper keys.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"game_mode":           c.GameMode,
		"database":            c.Database,
		"provider.kind":       c.Provider.Kind,
		"provider.endpoint":   c.Provider.Endpoint,
		"provider.file":       c.Provider.File,
		"provider.lang":       c.Provider.Lang,
		"provider.timeout":    c.Provider.Timeout.String(),
		"provider.refresh":    c.Provider.Refresh,
		"server.addr":         c.Server.Addr,
		"engine.parallelism":  c.Engine.Parallelism,
		"retention.keep_last": c.Retention.KeepLast,
		"retention.keep_days": c.Retention.KeepDays,
	}
}
