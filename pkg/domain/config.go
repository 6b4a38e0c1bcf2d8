package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var ErrEncryptionKeyMissing = errors.New("encryption passphrase is not configured")

// OAuthClientConfig is one provider's client identifier/secret pair and
// redirect target, read once per process. There is no live rotation.
type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type AppConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	DatabaseURL   string `mapstructure:"database_url"`

	// EncryptionPassphrase is the single input the vault key is derived
	// from. A missing value is a hard startup failure; substituting a
	// throwaway key would make every previously sealed secret unreadable
	// after a restart.
	EncryptionPassphrase string `mapstructure:"encryption_passphrase"`

	OAuthClients map[string]OAuthClientConfig `mapstructure:"oauth_clients"`
}

// Validate enforces the startup invariants that cannot be defaulted.
func (c AppConfig) Validate() error {
	if c.EncryptionPassphrase == "" {
		return ErrEncryptionKeyMissing
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is not configured")
	}

	return nil
}

func (c AppConfig) OAuthClient(provider string) (OAuthClientConfig, bool) {
	client, ok := c.OAuthClients[provider]
	return client, ok
}

type ConfigManager interface {
	GetConfig(ctx context.Context) (AppConfig, error)
}

type configManager struct {
	viper *viper.Viper
}

func NewConfigManager() (ConfigManager, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("NODELOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"listen_address":        "NODELOOM_LISTEN_ADDRESS",
		"database_url":          "NODELOOM_DATABASE_URL",
		"encryption_passphrase": "NODELOOM_ENCRYPTION_PASSPHRASE",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.nodeloom")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Debug().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	return &configManager{
		viper: v,
	}, nil
}

func (m *configManager) GetConfig(ctx context.Context) (AppConfig, error) {
	var config AppConfig
	if err := m.viper.Unmarshal(&config); err != nil {
		return AppConfig{}, fmt.Errorf("unable to decode config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_address", ":8090")
}
