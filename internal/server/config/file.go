package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fitiq/fitiq/internal/flagx"
	"github.com/fitiq/fitiq/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape. Durations accept "15m" as well as integer
// nanoseconds; absent keys leave the current value alone.
type FileConfig struct {
	HTTPAddr                     *string         `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN                  *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	MealWorkers                  *int            `json:"meal_workers" yaml:"meal_workers"`
	MealQueueSize                *int            `json:"meal_queue_size" yaml:"meal_queue_size"`
	ShutdownTimeout              *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel                     *string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c or -config, if any. YAML is chosen by
// the .yaml/.yml extension, JSON otherwise.
func (c *Config) parseFile(args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.MealWorkers != nil {
		c.MealWorkers = *fc.MealWorkers
	}
	if fc.MealQueueSize != nil {
		c.MealQueueSize = *fc.MealQueueSize
	}
	if fc.AccessTokenValidityDuration != nil {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration != nil {
		c.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.ShutdownTimeout != nil {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
