package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/CIDgravity/snakelet"
)

// config structure
type Config struct {
	API    APIConfig    `mapstructure:"API"`
	Github GithubConfig `mapstructure:"GITHUB"`
	Tasks  TasksConfig  `mapstructure:"TASKS"`
	Logs   LogsConfig   `mapstructure:"LOGS"`
}

type APIConfig struct {
	ListenPort string `mapstructure:"ListenPort"`
}

type GithubConfig struct {
	ApiBaseUrl             string  `mapstructure:"ApiBaseUrl"` // empty = api.github.com
	Token                  string  `mapstructure:"Token"`
	ConnectTimeoutMs       int     `mapstructure:"ConnectTimeoutMs"`
	ReadTimeoutMs          int     `mapstructure:"ReadTimeoutMs"`
	MaxRepositoriesPerPage int     `mapstructure:"MaxRepositoriesPerPage"`
	MaxCommitsPerRepo      int     `mapstructure:"MaxCommitsPerRepo"`
	MaxRetries             int     `mapstructure:"MaxRetries"`
	RetryDelayMs           int     `mapstructure:"RetryDelayMs"`
	RequestsPerSecond      float64 `mapstructure:"RequestsPerSecond"` // 0 = no outbound throttling
	EnableRequestLogging   bool    `mapstructure:"EnableRequestLogging"`
}

type TasksConfig struct {
	MaxParallelTasksAllowed int `mapstructure:"MaxParallelTasksAllowed"`
}

type LogsConfig struct {
	Level            string `mapstructure:"Level"` // error | warn | info | debug - case insensitive
	OutputLogsAsJson bool   `mapstructure:"OutputLogsAsJson"`
}

// Load read config/config.toml next to the binary or in the working directory
// when no config file exists the defaults are used so the service can run with a token from the environment
func Load() (*Config, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))

	if err != nil {
		return nil, err
	}

	// check config file exists
	configFilePath := dir + "/config/config.toml"

	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat("config/config.toml"); errors.Is(err, os.ErrNotExist) {
			return GetDefault(), nil
		} else {
			configFilePath = "config/config.toml"
		}
	}

	// load default and config file content
	cfg := GetDefault()
	_, err = snakelet.InitAndLoad(cfg, configFilePath)

	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetDefault
func GetDefault() *Config {
	return &Config{
		API: APIConfig{
			ListenPort: "5000",
		},
		Github: GithubConfig{
			ApiBaseUrl:             "",
			Token:                  "",
			ConnectTimeoutMs:       10000,
			ReadTimeoutMs:          30000,
			MaxRepositoriesPerPage: 30,
			MaxCommitsPerRepo:      20,
			MaxRetries:             3,
			RetryDelayMs:           2000,
			RequestsPerSecond:      0,
			EnableRequestLogging:   false,
		},
		Tasks: TasksConfig{
			MaxParallelTasksAllowed: 5,
		},
		Logs: LogsConfig{
			Level:            "debug",
			OutputLogsAsJson: false,
		},
	}
}
