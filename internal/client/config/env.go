package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "FITIQ_"

// Environ returns the process environment merged with .env files found in
// dirs. Process variables win over file values.
func Environ(dirs ...string) (map[string]string, error) {
	env := map[string]string{}
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		vals, err := godotenv.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range vals {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overlays c with FITIQ_* variables from env.
func (c *Config) ApplyEnv(env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[envPrefix+key]; ok && v != "" {
			*dst = v
		}
	}
	str("SERVER_URL", &c.ServerURL)
	str("DATA_DIR", &c.DataDir)
	str("DB_PATH", &c.DBPath)
	str("HEALTH_EXPORT", &c.HealthExportPath)
	str("DEVICE_SECRET", &c.DeviceSecret)
	str("SYNC_SCHEDULE", &c.SyncSchedule)
	str("METRICS_ADDR", &c.MetricsAddr)

	var errs []error
	if v, ok := env[envPrefix+"MAX_ATTEMPTS"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_ATTEMPTS: %w", envPrefix, err))
		}
		c.MaxAttempts = n
	}
	if v, ok := env[envPrefix+"BASE_BACKOFF"]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sBASE_BACKOFF: %w", envPrefix, err))
		}
		c.BaseBackoff = d
	}
	if v, ok := env[envPrefix+"VERBOSE"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sVERBOSE: %w", envPrefix, err))
		}
		c.Verbose = b
	}
	return errors.Join(errs...)
}
