package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Layers   LayersConfig
	UI       UIConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LayersConfig describes the layer collection built at startup.
type LayersConfig struct {
	DefaultName  string   `mapstructure:"default_name"`
	DefaultColor string   `mapstructure:"default_color"`
	MaxLayers    int      `mapstructure:"max_layers"`
	Seed         []string `mapstructure:"seed"`
	File         string   `mapstructure:"file"`
}

// UIConfig holds presentation defaults for the layer window.
type UIConfig struct {
	Title      string
	X          int
	Y          int
	Width      int
	Height     int
	Background string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	Development bool
	File        string
}

// Load reads configuration from file and env. Env var overrides use prefix LAYERDESK_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "layerdesk", "layerdesk.db"))
	v.SetDefault("layers.default_name", "Layer 0")
	v.SetDefault("layers.default_color", "#000000")
	v.SetDefault("layers.max_layers", 0)
	v.SetDefault("layers.seed", []string{})
	v.SetDefault("layers.file", "")
	v.SetDefault("ui.title", "Layer Management")
	v.SetDefault("ui.x", 20)
	v.SetDefault("ui.y", 20)
	v.SetDefault("ui.width", 640)
	v.SetDefault("ui.height", 300)
	v.SetDefault("ui.background", "White")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", filepath.Join(os.Getenv("HOME"), ".local", "share", "layerdesk", "layerdesk.log"))

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LAYERDESK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "layerdesk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LAYERDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Layers.MaxLayers < 0 {
		return Config{}, fmt.Errorf("layers.max_layers must not be negative, got %d", c.Layers.MaxLayers)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("LAYERDESK_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "layerdesk", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("layers.default_name", cfg.Layers.DefaultName)
	v.Set("layers.default_color", cfg.Layers.DefaultColor)
	v.Set("layers.max_layers", cfg.Layers.MaxLayers)
	v.Set("layers.seed", cfg.Layers.Seed)
	v.Set("layers.file", cfg.Layers.File)
	v.Set("ui.title", cfg.UI.Title)
	v.Set("ui.x", cfg.UI.X)
	v.Set("ui.y", cfg.UI.Y)
	v.Set("ui.width", cfg.UI.Width)
	v.Set("ui.height", cfg.UI.Height)
	v.Set("ui.background", cfg.UI.Background)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.development", cfg.Log.Development)
	v.Set("log.file", cfg.Log.File)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
