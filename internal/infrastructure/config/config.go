// Package config provides configuration loading for the coolify-deploy
// application. All configuration comes from environment variables; the
// platform URL and token are deliberately optional because their absence
// routes the run to manual-instructions mode instead of failing.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names.
const (
	// EnvCoolifyURL is the base URL of the Coolify instance.
	EnvCoolifyURL = "COOLIFY_URL"

	// EnvCoolifyToken is the Coolify API token (Keys & Tokens > API tokens).
	EnvCoolifyToken = "COOLIFY_TOKEN"

	// EnvRepository overrides the git repository identifier (owner/repo)
	// when no origin remote is configured locally.
	EnvRepository = "COOLIFY_REPOSITORY"

	// EnvBranch overrides the deployed branch.
	EnvBranch = "COOLIFY_BRANCH"

	// EnvAppPort overrides the container port exposed by the Dockerfile.
	EnvAppPort = "COOLIFY_APP_PORT"

	// EnvLogLevel is the log level (debug, info, warn, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"
)

// Default values.
const (
	DefaultLogLevel   = "info"
	DefaultLogAppName = "coolify-deploy"
	DefaultAppPort    = 8000
)

// Config holds all application configuration.
type Config struct {
	// BaseURL is the Coolify instance URL, without trailing slash.
	// Empty when not configured.
	BaseURL string

	// Token is the Coolify API token. Empty when not configured.
	Token string

	// Repository is the optional owner/repo override used when the local
	// project has no origin remote.
	Repository string

	// Branch is the optional branch override.
	Branch string

	// Port is the container port exposed by the generated Dockerfile.
	Port int

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// Automated reports whether the configuration required for automated
// deployment is present.
func (c *Config) Automated() bool {
	return c.BaseURL != "" && c.Token != ""
}

// Load reads the application configuration from environment variables.
// Missing platform settings are not an error here; the coordinator decides
// whether they are required for the requested run mode.
func Load() (*Config, error) {
	v := viper.New()

	bindings := map[string]string{
		"base_url":     EnvCoolifyURL,
		"token":        EnvCoolifyToken,
		"repository":   EnvRepository,
		"branch":       EnvBranch,
		"app_port":     EnvAppPort,
		"log_level":    EnvLogLevel,
		"log_app_name": EnvLogAppName,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	v.SetDefault("app_port", DefaultAppPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_app_name", DefaultLogAppName)

	cfg := &Config{
		BaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString("base_url")), "/"),
		Token:      strings.TrimSpace(v.GetString("token")),
		Repository: strings.TrimSpace(v.GetString("repository")),
		Branch:     strings.TrimSpace(v.GetString("branch")),
		Port:       v.GetInt("app_port"),
		LogLevel:   v.GetString("log_level"),
		LogAppName: v.GetString("log_app_name"),
	}

	if cfg.Port <= 0 {
		cfg.Port = DefaultAppPort
	}

	return cfg, nil
}
