package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ConfigName is the file looked up in the config directory.
const ConfigName = "skirmish"

// ScenarioConfig controls headless batch runs.
type ScenarioConfig struct {
	Ticks int   `mapstructure:"ticks"`
	Runs  int   `mapstructure:"runs"`
	Seed  int64 `mapstructure:"seed"`
}

// StorageConfig locates the run archive.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Settings is the typed view of the loaded configuration.
type Settings struct {
	LogLevel      string         `mapstructure:"logLevel"`
	LocalFaction  int            `mapstructure:"localFaction"`
	MaxRingGrowth int            `mapstructure:"maxRingGrowth"`
	CatalogPath   string         `mapstructure:"catalogPath"`
	Scenario      ScenarioConfig `mapstructure:"scenario"`
	Storage       StorageConfig  `mapstructure:"storage"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("localFaction", 0)
	viper.SetDefault("maxRingGrowth", 12)
	viper.SetDefault("catalogPath", "")

	viper.SetDefault("scenario.ticks", 600)
	viper.SetDefault("scenario.runs", 1)
	viper.SetDefault("scenario.seed", 42)

	viper.SetDefault("storage.enabled", false)
	viper.SetDefault("storage.path", "./skirmish-runs.db")
}

// Load sets defaults, reads skirmish.yaml from configDir when present and
// applies SKIRMISH_* environment overrides (SKIRMISH_SCENARIO_TICKS for
// scenario.ticks). A missing file is not an error; a malformed one is.
func Load(configDir string) (Settings, error) {
	setDefaults()

	viper.SetConfigName(ConfigName)
	viper.SetConfigType("yaml")
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}
	viper.SetEnvPrefix("SKIRMISH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return Current()
}

// Current decodes the active viper state into Settings.
func Current() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if s.Scenario.Runs < 1 {
		s.Scenario.Runs = 1
	}
	return s, nil
}
