package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full agent configuration, loaded from YAML with env
// overrides.
type Config struct {
	Env         string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"pulse-agent.db"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
	} `yaml:"log"`

	Device struct {
		ID   string `yaml:"id" env:"DEVICE_ID"`
		Name string `yaml:"name" env:"DEVICE_NAME"`
	} `yaml:"device"`

	Auth struct {
		AccessToken  string `yaml:"access_token" env:"ACCESS_TOKEN"`
		RefreshToken string `yaml:"refresh_token" env:"REFRESH_TOKEN"`
	} `yaml:"auth"`

	Backend struct {
		BaseURL string `yaml:"base_url" env:"BACKEND_URL" env-default:"http://localhost:8080"`
		Timeout int    `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"30"`
	} `yaml:"backend"`

	Tracking struct {
		SessionPollInterval int      `yaml:"session_poll_interval" env-default:"2"`    // seconds
		IdleCheckInterval   int      `yaml:"idle_check_interval" env-default:"5"`      // seconds
		IdleThreshold       int      `yaml:"idle_threshold" env-default:"300"`         // seconds
		InputWindowInterval int      `yaml:"input_window_interval" env-default:"60"`   // seconds
		SyncInterval        int      `yaml:"sync_interval" env-default:"60"`           // seconds
		SyncBatchSize       int      `yaml:"sync_batch_size" env-default:"100"`
		ExcludedApps        []string `yaml:"excluded_apps"`
	} `yaml:"tracking"`

	Server struct {
		Enabled bool `yaml:"enabled" env-default:"true"`
		Port    int  `yaml:"port" env:"SERVER_PORT" env-default:"8472"`
	} `yaml:"server"`

	Tray struct {
		Enabled bool `yaml:"enabled" env-default:"false"`
	} `yaml:"tray"`

	Categories []CategoryRule `yaml:"categories"`
}

// CategoryRule maps applications to a productivity category by
// case-insensitive substring match.
type CategoryRule struct {
	Name              string   `yaml:"name"`
	Apps              []string `yaml:"apps"`
	ProductivityScore float64  `yaml:"productivity_score"`
	Color             string   `yaml:"color"`
}

// LoadConfig reads the configuration file and applies env overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return &cfg, nil
}
