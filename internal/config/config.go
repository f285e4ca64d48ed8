package config

import (
	"os"
)

type Config struct {
	LogLevel  string
	LogFormat string
}

func Load() Config {
	return Config{
		LogLevel:  envStr("CHRONMERGE_LOG_LEVEL", "info"),
		LogFormat: envStr("CHRONMERGE_LOG_FORMAT", "text"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
