package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/filex"
	"github.com/fitiq/fitiq/internal/flagx"
	"github.com/robfig/cron/v3"
)

// Config holds runtime settings for the FitIQ CLI and sync daemon.
type Config struct {
	ServerURL string
	DataDir   string
	// DBPath and HealthExportPath are resolved against DataDir when relative.
	DBPath           string
	HealthExportPath string
	// DeviceSecret keys the local token store. When empty a random secret is
	// generated once and kept in DataDir.
	DeviceSecret string

	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int

	SyncSchedule        string
	OnlineCheckInterval time.Duration
	BatchSize           int
	MaxAttempts         int
	BaseBackoff         time.Duration

	// MetricsAddr enables the daemon's /metrics endpoint when set.
	MetricsAddr string
	Verbose     bool
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() *Config {
	return &Config{
		ServerURL:           "http://127.0.0.1:8080",
		DataDir:             filex.DefaultDataDir(),
		DBPath:              "fitiq.db",
		HealthExportPath:    "health.json",
		RequestTimeout:      15 * time.Second,
		RequestsPerSecond:   10,
		Burst:               5,
		SyncSchedule:        "@every 5m",
		OnlineCheckInterval: 30 * time.Second,
		BatchSize:           50,
		MaxAttempts:         5,
		BaseBackoff:         30 * time.Second,
	}
}

// Load applies defaults, the config file named in args and the environment.
// Flags are applied afterwards by the command line parser via BindFlags.
func Load(args []string, env map[string]string) (*Config, error) {
	cfg := Defaults()
	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabasePath returns the absolute location of the local cache.
func (c *Config) DatabasePath() string {
	return filex.ResolveInDir(c.DataDir, c.DBPath)
}

func (c *Config) HealthExportFile() string {
	return filex.ResolveInDir(c.DataDir, c.HealthExportPath)
}

func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server_url %q must be an http(s) URL", c.ServerURL))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if _, err := cron.ParseStandard(c.SyncSchedule); err != nil {
		errs = append(errs, fmt.Errorf("sync_schedule %q: %w", c.SyncSchedule, err))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("max_attempts must be at least 1"))
	}
	if c.BaseBackoff <= 0 {
		errs = append(errs, errors.New("base_backoff must be positive"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, errors.New("batch_size must be at least 1"))
	}
	if c.RequestTimeout <= 0 || c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("request_timeout and online_check_interval must be positive"))
	}
	return errors.Join(errs...)
}

const deviceSecretFile = "device.key"

// ResolveDeviceSecret returns DeviceSecret, or the secret persisted in
// DataDir, creating it on first use.
func (c *Config) ResolveDeviceSecret() ([]byte, error) {
	if c.DeviceSecret != "" {
		return []byte(c.DeviceSecret), nil
	}
	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, deviceSecretFile)

	b, err := os.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return []byte(strings.TrimSpace(string(b))), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read device secret: %w", err)
	}

	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("generate device secret: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		return nil, fmt.Errorf("write device secret: %w", err)
	}
	return []byte(secret), nil
}
