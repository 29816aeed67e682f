package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Sentry holds CLI flags for error tracking
type Sentry struct {
	dsn string
	env string
}

// Flags returns CLI flags for Sentry configuration
func (x *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error tracking (leave empty to disable)",
			Sources:     cli.EnvVars("CHIRON_SENTRY_DSN"),
			Destination: &x.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment name",
			Sources:     cli.EnvVars("CHIRON_SENTRY_ENV"),
			Destination: &x.env,
		},
	}
}

// LogValue returns log attributes for the Sentry configuration
func (x Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.dsn != ""),
		slog.String("env", x.env),
	)
}

// Configure initializes the Sentry client. The returned closer flushes
// buffered events before shutdown.
func (x *Sentry) Configure(version string) (func(), error) {
	if x.dsn == "" {
		logging.Default().Info("Sentry is not configured, skipping")
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         x.dsn,
		Environment: x.env,
		Release:     version,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry")
	}

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
