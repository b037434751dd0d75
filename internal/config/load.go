package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/metalagman/questgraph/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. QUESTGRAPH_SERVER_ADDR.
const EnvPrefix = "QUESTGRAPH"

// DefaultPath is the config file used when none is given.
var DefaultPath = filepath.Join(Dir, "config.yaml")

// Load builds the configuration from defaults, the file at path (if it exists) and
// QUESTGRAPH_* environment variables, in increasing priority. The file is checked
// against the JSON schema before it is merged.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range Default().Settings() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		settings, err := readFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := ValidateSettings(settings); err != nil {
				return Config{}, fmt.Errorf("%s: %w", path, err)
			}
			if err := v.MergeConfigMap(settings); err != nil {
				return Config{}, fmt.Errorf("merge config: %w", err)
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readFile decodes the raw document so the schema sees every key, including ones with
// empty values that viper would drop. YAML decoding also covers JSON files.
func readFile(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var settings map[string]any
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return settings, nil
}

// Validate checks values the schema cannot express.
func (c Config) Validate() error {
	if _, err := model.ParseGameMode(c.GameMode); err != nil {
		return err
	}
	switch c.Provider.Kind {
	case ProviderGraphQL:
	case ProviderFile:
		if c.Provider.File == "" {
			return errors.New("provider.file is required for the file provider")
		}
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	if c.Engine.Parallelism < 1 {
		return fmt.Errorf("engine.parallelism must be > 0")
	}
	if c.Retention.KeepLast < 0 || c.Retention.KeepDays < 0 {
		return fmt.Errorf("retention limits must not be negative")
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout must not be negative")
	}
	return nil
}

// Mode returns the parsed game mode.
func (c Config) Mode() model.GameMode {
	mode, err := model.ParseGameMode(c.GameMode)
	if err != nil {
		return model.GameModePvP
	}
	return mode
}

// Write stores cfg at path, creating the directory. The format follows the extension.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	v := viper.New()
	for key, value := range cfg.Settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
