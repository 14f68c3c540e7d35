// Package config loads actl settings with viper. Every adapter receives the
// same *viper.Viper and reads its own keys from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "ACTL"
	configDir      = ".activitylog"
	configFileName = "config.toml"

	StoreBackendKey     = "store.backend"
	StorePathKey        = "store.path"
	PresentationsKey    = "presentations.path"
	SessionsKey         = "sessions.path"
	RedisAddrKey        = "redis.addr"
	RedisPasswordKey    = "redis.password"
	RedisPasswordRefKey = "redis.password_ref"
	RedisDBKey          = "redis.db"
	RedisPrefixKey      = "redis.prefix"
	DiagnosticsLinesKey = "diagnostics.max_lines"
	LogLevelKey         = "log.level"
	SecretsDirKey       = "secrets.dir"
	SecretsPassDirKey   = "secrets.pass_dir"

	BackendTOML  = "toml"
	BackendRedis = "redis"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// Load builds the configuration. An explicit path must exist; the default
// $HOME/.activitylog/config.toml is optional. Environment variables such as
// ACTL_STORE_PATH override both.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(StoreBackendKey, BackendTOML)
	v.SetDefault(RedisAddrKey, "127.0.0.1:6379")
	v.SetDefault(RedisPrefixKey, "activitylog:")
	v.SetDefault(DiagnosticsLinesKey, 200)
	v.SetDefault(LogLevelKey, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{StorePathKey, PresentationsKey, SessionsKey, RedisPasswordKey, RedisPasswordRefKey, RedisDBKey, SecretsDirKey, SecretsPassDirKey} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, validate(v)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return v, validate(v)
	}

	defaultPath := filepath.Join(homeDir, configDir, configFileName)
	if _, err := os.Stat(defaultPath); err != nil {
		return v, validate(v)
	}

	v.SetConfigFile(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", defaultPath, err)
	}

	return v, validate(v)
}

func validate(v *viper.Viper) error {
	switch backend := strings.ToLower(strings.TrimSpace(v.GetString(StoreBackendKey))); backend {
	case BackendTOML, BackendRedis:
		v.Set(StoreBackendKey, backend)
		return nil
	default:
		return fmt.Errorf("%w %q (want %s or %s)", ErrUnknownBackend, backend, BackendTOML, BackendRedis)
	}
}
