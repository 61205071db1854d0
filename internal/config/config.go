package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "QUILL"
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultCachePath           = "quill.db"
	defaultBackendDatabasePath = "quill-remote.db"
	defaultRemoteBaseURL       = "http://localhost:8080"
	defaultLogLevel            = "info"
)

// AppConfig captures runtime configuration for the client engine and the
// reference backend.
type AppConfig struct {
	HTTPAddress          string
	CachePath            string
	BackendDatabasePath  string
	RemoteBaseURL        string
	SessionSigningSecret string
	AccountID            string
	AccountDisplayName   string
	AccountEmail         string
	LogLevel             string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("cache.path", defaultCachePath)
	configViper.SetDefault("backend.database_path", defaultBackendDatabasePath)
	configViper.SetDefault("remote.base_url", defaultRemoteBaseURL)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		CachePath:            configViper.GetString("cache.path"),
		BackendDatabasePath:  configViper.GetString("backend.database_path"),
		RemoteBaseURL:        configViper.GetString("remote.base_url"),
		SessionSigningSecret: configViper.GetString("session.signing_secret"),
		AccountID:            configViper.GetString("account.id"),
		AccountDisplayName:   configViper.GetString("account.display_name"),
		AccountEmail:         configViper.GetString("account.email"),
		LogLevel:             configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.CachePath) == "" {
		return fmt.Errorf("cache.path is required")
	}
	if strings.TrimSpace(c.RemoteBaseURL) == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	return nil
}

// ValidateServer checks the extra settings the reference backend needs.
func (c AppConfig) ValidateServer() error {
	if strings.TrimSpace(c.SessionSigningSecret) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.BackendDatabasePath) == "" {
		return fmt.Errorf("backend.database_path is required")
	}
	return nil
}
