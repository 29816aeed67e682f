package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/cli/config"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closer func()
	var flush func()

	var flags []cli.Flag
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "chiron",
		Usage:   "Chiron voice-first conversational learning assistant",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			fl, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			flush = fl

			logging.Default().Info("Starting chiron", "logger", loggerCfg, "sentry", sentryCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if flush != nil {
				flush()
			}
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdChat(),
			cmdAsk(),
			cmdGraph(),
			cmdValidate(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
