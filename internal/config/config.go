// Package config loads settings for the beacon client and the beacond
// backend from a YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig configures the beacon client daemon.
type ClientConfig struct {
	ServerURL   string        `mapstructure:"server_url"`
	UserID      string        `mapstructure:"user_id"`
	AccessKey   string        `mapstructure:"access_key"`
	FeedBackoff time.Duration `mapstructure:"feed_backoff"`
	NotifySend  string        `mapstructure:"notify_send"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`
}

// ServerConfig configures the beacond backend.
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	DBPath          string `mapstructure:"db_path"`
	JWTSecret       string `mapstructure:"jwt_secret"`
	AccessKeyHash   string `mapstructure:"access_key_hash"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	PushSubscriber  string `mapstructure:"push_subscriber"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
}

// Config is the root of the YAML file shared by both binaries.
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Server ServerConfig `mapstructure:"server"`
}

// Load reads beacon.yaml from the current directory or ./config, applying
// BEACON_* environment overrides (e.g. BEACON_SERVER_PORT). A missing file
// is fine; defaults and the environment cover the rest.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("beacon")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.feed_backoff", 5*time.Second)
	v.SetDefault("client.log_level", "info")
	v.SetDefault("client.log_format", "text")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.db_path", "beacond.db")
	v.SetDefault("server.push_subscriber", "mailto:noreply@oakledger.dev")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "text")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
