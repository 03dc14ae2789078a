package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables recognized by FromEnv.
const (
	EnvStore                 = "TENKEN_STORE"
	EnvUser                  = "TENKEN_USER"
	EnvRedisAddr             = "TENKEN_REDIS_ADDR"
	EnvRedisTTL              = "TENKEN_REDIS_TTL"
	EnvDebug                 = "TENKEN_DEBUG"
	EnvTimezone              = "TENKEN_TIMEZONE"
	EnvAzureConnectionString = "TENKEN_AZURE_CONNECTION_STRING"
	EnvDBConnection          = "TENKEN_DB_CONNECTION"
)

// FromEnv overrides cfg with any TENKEN_* variables that are set.
func FromEnv(cfg *Config) *Config {
	if cfg == nil {
		cfg = Default()
	}

	if val := os.Getenv(EnvStore); val != "" {
		cfg.Store = val
	}
	if val := os.Getenv(EnvUser); val != "" {
		cfg.Operator.Name = val
	}
	if val := os.Getenv(EnvRedisAddr); val != "" {
		cfg.Redis.Addr = val
	}
	if val := getEnvDuration(EnvRedisTTL); val > 0 {
		cfg.Redis.TTL = val
	}
	if val, ok := getEnvBool(EnvDebug); ok {
		cfg.Debug = val
	}
	if val := os.Getenv(EnvTimezone); val != "" {
		cfg.Timezone = val
	}

	return cfg
}

func getEnvBool(key string) (bool, bool) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}

func getEnvDuration(key string) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0
	}
	return d
}
