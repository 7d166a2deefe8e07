// Package config loads the leak-delivery server's settings, preferring
// Vault-sourced secrets (via packages/go-core/config.SecretManager) and
// falling back to plain environment variables when no Vault address is
// configured.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	goreconfig "github.com/arc-self/leakchef-server/packages/go-core/config"
)

// Config holds every setting cmd/server needs to start.
type Config struct {
	MongoURL   string
	DBName     string
	ServerIP   string
	ServerPort string
	LogLevel   string

	OTELEndpoint string

	VaultAddr       string
	VaultToken      string
	VaultSecretPath string
}

const defaultDBName = "leakchef"

// Load reads configuration from the environment (via viper's
// AutomaticEnv), then — if VAULT_ADDR is set — overlays MONGO_URL from a
// Vault KV v2 secret, the same gating every other app in this codebase
// applies.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVER_IP", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_NAME", defaultDBName)

	cfg := Config{
		MongoURL:        v.GetString("MONGO_URL"),
		DBName:          v.GetString("DB_NAME"),
		ServerIP:        v.GetString("SERVER_IP"),
		ServerPort:      v.GetString("SERVER_PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		OTELEndpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		VaultAddr:       v.GetString("VAULT_ADDR"),
		VaultToken:      v.GetString("VAULT_TOKEN"),
		VaultSecretPath: v.GetString("VAULT_SECRET_PATH"),
	}

	if cfg.VaultAddr == "" {
		if cfg.MongoURL == "" {
			return Config{}, fmt.Errorf("config: MONGO_URL must be set when VAULT_ADDR is not configured")
		}
		return cfg, nil
	}

	secret, err := loadFromVault(cfg.VaultAddr, cfg.VaultToken, cfg.VaultSecretPath)
	if err != nil {
		return Config{}, fmt.Errorf("config: vault secret load failed: %w", err)
	}
	if secret != "" {
		cfg.MongoURL = secret
	}
	if cfg.MongoURL == "" {
		return Config{}, fmt.Errorf("config: no MONGO_URL available from Vault secret %q or environment", cfg.VaultSecretPath)
	}
	return cfg, nil
}

// loadFromVault fetches MONGO_URL out of a KV v2 secret. Returns "" (no
// error) if the secret path lacks that key, so env-sourced values can still
// fill the gap.
func loadFromVault(addr, token, path string) (string, error) {
	manager, err := goreconfig.NewSecretManager(addr, token)
	if err != nil {
		return "", err
	}

	data, err := manager.GetKV2(path)
	if err != nil {
		return "", err
	}

	url, ok := data["MONGO_URL"].(string)
	if !ok {
		return "", nil
	}
	return url, nil
}
