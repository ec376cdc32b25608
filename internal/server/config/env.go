package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv adds the variables of the given .env files to the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv overlays FITIQ_* variables.
func (c *Config) applyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("FITIQ_HTTP_ADDR", &c.HTTPAddr)
	str("FITIQ_DATABASE_DSN", &c.DatabaseDSN)
	str("FITIQ_SECRET_KEY", &c.SecretKey)
	str("FITIQ_LOG_LEVEL", &c.LogLevel)
	dur("FITIQ_ACCESS_TOKEN_TTL", &c.AccessTokenValidityDuration)
	dur("FITIQ_REFRESH_TOKEN_TTL", &c.RefreshTokenValidityDuration)
	dur("FITIQ_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	num("FITIQ_MEAL_WORKERS", &c.MealWorkers)
	num("FITIQ_MEAL_QUEUE_SIZE", &c.MealQueueSize)
	return errors.Join(errs...)
}
