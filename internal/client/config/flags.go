package config

import "github.com/spf13/pflag"

// BindFlags registers flags that write straight into c. Current values become
// the flag defaults, so call it after Load.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to a JSON or YAML config file")
	fs.StringVarP(&c.ServerURL, "server", "a", c.ServerURL, "backend base URL")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for the local cache and device key")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "local cache file (relative to --data-dir)")
	fs.StringVar(&c.HealthExportPath, "health-export", c.HealthExportPath, "health export JSON file (relative to --data-dir)")
	fs.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "per-request timeout")
	fs.StringVar(&c.SyncSchedule, "schedule", c.SyncSchedule, "cron schedule for background sync")
	fs.DurationVarP(&c.OnlineCheckInterval, "online-check", "i", c.OnlineCheckInterval, "online status check interval")
	fs.IntVar(&c.MaxAttempts, "max-attempts", c.MaxAttempts, "delivery attempts before an event is marked failed")
	fs.DurationVar(&c.BaseBackoff, "backoff", c.BaseBackoff, "base retry backoff")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address (daemon)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "debug logging")
}
