package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	ExportConfig  *ExportConfig
	ServerConfig  *ServerConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogFile  string `envconfig:"LOG_FILE" default:""`
}

type BrowserConfig struct {
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR" default:""`
	StartURL    string `envconfig:"BROWSER_START_URL" default:"about:blank"`
}

type ExportConfig struct {
	Dir string `envconfig:"EXPORT_DIR" default:"."`
}

type ServerConfig struct {
	Enabled bool   `envconfig:"SERVER_ENABLED" default:"false"`
	Addr    string `envconfig:"SERVER_ADDR" default:"127.0.0.1:8765"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
