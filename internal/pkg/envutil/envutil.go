package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// String reads an environment variable, falling back to def when unset or
// blank. A nil log is accepted so callers can use this before the logger
// has been constructed.
func String(key, def string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", def)
		}
		return def
	}
	if log != nil {
		log.Debug("environment variable found", "value", val)
	}
	return val
}

func Int(key string, def int, log *logger.Logger) int {
	raw := String(key, "", log)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		if log != nil {
			log.Warn("environment variable is not a valid int, using default", "env_var", key, "value", raw, "default", def)
		}
		return def
	}
	return v
}

func Float(key string, def float64, log *logger.Logger) float64 {
	raw := String(key, "", log)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		if log != nil {
			log.Warn("environment variable is not a valid float, using default", "env_var", key, "value", raw, "default", def)
		}
		return def
	}
	return v
}

func Bool(key string, def bool, log *logger.Logger) bool {
	raw := String(key, "", log)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		if log != nil {
			log.Warn("environment variable is not a valid bool, using default", "env_var", key, "value", raw, "default", def)
		}
		return def
	}
	return v
}
