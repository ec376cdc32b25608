package config

import (
	"flag"
	"io"

	"github.com/fitiq/fitiq/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   access token validity
//	-r duration   refresh token validity
//	-w int        meal analysis workers
//	-l string     log level (debug, info, warn, error)
//
// args are filtered with flagx.FilterArgs first so -c/-config and flags owned
// by other components do not fail the parse.
func (c *Config) parseFlags(args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-w", "-l"})

	fs := flag.NewFlagSet("fitiq-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.HTTPAddr, "a", c.HTTPAddr, "address and port to run server")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.SecretKey, "s", c.SecretKey, "secret key")
	fs.DurationVar(&c.AccessTokenValidityDuration, "t", c.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&c.RefreshTokenValidityDuration, "r", c.RefreshTokenValidityDuration, "refresh token validity")
	fs.IntVar(&c.MealWorkers, "w", c.MealWorkers, "meal analysis workers")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")

	return fs.Parse(args)
}
