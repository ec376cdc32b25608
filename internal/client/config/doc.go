// Package config loads runtime configuration for the FitIQ CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (Defaults).
//  2. Optional JSON or YAML file selected with -c or --config.
//  3. Environment variables (FITIQ_*), including a .env file in the working
//     directory or the data directory.
//  4. Command-line flags bound with BindFlags.
//
// Durations in files may be strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://api.fitiq.example",
//	  "sync_schedule": "@every 5m",
//	  "base_backoff": "30s",
//	  "max_attempts": 5
//	}
package config
