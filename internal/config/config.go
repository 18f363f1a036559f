package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "RESEARCHLINK"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "researchlink.db"
	defaultLogLevel        = "info"
	defaultTokenTTLMinutes = 60
	defaultKafkaTopic      = "researchlink.profile.events"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	SigningSecret string
	DatabasePath  string
	TokenTTL      time.Duration
	LogLevel      string
	KafkaBroker   string
	KafkaTopic    string
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
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("kafka.broker", "")
	configViper.SetDefault("kafka.topic", defaultKafkaTopic)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		DatabasePath:  configViper.GetString("database.path"),
		TokenTTL:      time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		LogLevel:      configViper.GetString("log.level"),
		KafkaBroker:   configViper.GetString("kafka.broker"),
		KafkaTopic:    configViper.GetString("kafka.topic"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// EventsEnabled reports whether a Kafka broker is configured for profile events.
func (c AppConfig) EventsEnabled() bool {
	return strings.TrimSpace(c.KafkaBroker) != ""
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if c.EventsEnabled() && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("kafka.topic is required when kafka.broker is set")
	}
	return nil
}
