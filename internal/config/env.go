package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - REQVAL_HOST, REQVAL_PORT (int), REQVAL_APP
// - REQVAL_SHUTDOWN_TIMEOUT (duration, e.g. "15s")
// - REQVAL_LOG_LEVEL, REQVAL_LOG_FILE
// - REQVAL_NLP_ENABLED (bool)
// - REQVAL_STORAGE_ENABLED (bool), REQVAL_STORAGE_PATH
// - REQVAL_NATS_URL, REQVAL_NATS_SUBJECT
// - REQVAL_BUILD_PRESET, REQVAL_BUILD_TAG
func ApplyEnvOverrides(cfg *Config) error {
	if err := applyServerEnv(cfg); err != nil {
		return err
	}
	if err := setBoolEnv("REQVAL_NLP_ENABLED", func(b bool) { cfg.NLPEnabled = b }); err != nil {
		return err
	}
	if err := setBoolEnv("REQVAL_STORAGE_ENABLED", func(b bool) { cfg.StorageEnabled = b }); err != nil {
		return err
	}

	setStringEnv("REQVAL_LOG_LEVEL", &cfg.LogLevel)
	setStringEnv("REQVAL_LOG_FILE", &cfg.LogFile)
	setStringEnv("REQVAL_STORAGE_PATH", &cfg.StoragePath)
	setStringEnv("REQVAL_NATS_URL", &cfg.NATSURL)
	setStringEnv("REQVAL_NATS_SUBJECT", &cfg.NATSSubject)
	setStringEnv("REQVAL_BUILD_PRESET", &cfg.BuildPreset)
	setStringEnv("REQVAL_BUILD_TAG", &cfg.BuildTag)
	return nil
}

func applyServerEnv(cfg *Config) error {
	setStringEnv("REQVAL_HOST", &cfg.Host)
	setStringEnv("REQVAL_APP", &cfg.App)
	if v := os.Getenv("REQVAL_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REQVAL_PORT: %w", err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("REQVAL_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQVAL_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func setStringEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBoolEnv(key string, set func(bool)) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	set(b)
	return nil
}
