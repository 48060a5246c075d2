package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the variable, or def when it is unset or empty.
func EnvString(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// EnvInt returns the variable parsed as an int. Unparseable values fall back to def.
func EnvInt(key string, def int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return def
}

// EnvBool returns the variable parsed with strconv.ParseBool.
func EnvBool(key string, def bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return def
}

// EnvDuration returns the variable as a duration. Bare integers are read as seconds.
func EnvDuration(key string, def time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return def
}

// EnvSet splits a comma-separated variable into a set, dropping blank entries.
func EnvSet(key string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = true
		}
	}
	return set
}
