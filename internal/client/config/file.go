package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fitiq/fitiq/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape. Pointers distinguish absent keys so a
// file only overrides what it names.
type fileConfig struct {
	ServerURL           *string         `json:"server_url" yaml:"server_url"`
	DataDir             *string         `json:"data_dir" yaml:"data_dir"`
	DBPath              *string         `json:"db_path" yaml:"db_path"`
	HealthExportPath    *string         `json:"health_export_path" yaml:"health_export_path"`
	DeviceSecret        *string         `json:"device_secret" yaml:"device_secret"`
	RequestTimeout      *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RequestsPerSecond   *float64        `json:"requests_per_second" yaml:"requests_per_second"`
	Burst               *int            `json:"burst" yaml:"burst"`
	SyncSchedule        *string         `json:"sync_schedule" yaml:"sync_schedule"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	BatchSize           *int            `json:"batch_size" yaml:"batch_size"`
	MaxAttempts         *int            `json:"max_attempts" yaml:"max_attempts"`
	BaseBackoff         *timex.Duration `json:"base_backoff" yaml:"base_backoff"`
	MetricsAddr         *string         `json:"metrics_addr" yaml:"metrics_addr"`
	Verbose             *bool           `json:"verbose" yaml:"verbose"`
}

// LoadFile overlays c with a JSON or YAML file; the format follows the
// extension.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&c.ServerURL, fc.ServerURL)
	set(&c.DataDir, fc.DataDir)
	set(&c.DBPath, fc.DBPath)
	set(&c.HealthExportPath, fc.HealthExportPath)
	set(&c.DeviceSecret, fc.DeviceSecret)
	set(&c.RequestsPerSecond, fc.RequestsPerSecond)
	set(&c.Burst, fc.Burst)
	set(&c.SyncSchedule, fc.SyncSchedule)
	set(&c.BatchSize, fc.BatchSize)
	set(&c.MaxAttempts, fc.MaxAttempts)
	set(&c.MetricsAddr, fc.MetricsAddr)
	set(&c.Verbose, fc.Verbose)
	if fc.RequestTimeout != nil {
		c.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.OnlineCheckInterval != nil {
		c.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.BaseBackoff != nil {
		c.BaseBackoff = fc.BaseBackoff.Duration
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
