package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Logger holds CLI flags for log output configuration
type Logger struct {
	level  string
	format string
	output string
}

// Flags returns CLI flags for logger configuration
func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level [debug, info, warn, error]",
			Value:       "info",
			Sources:     cli.EnvVars("CHIRON_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format [console, json]",
			Value:       "console",
			Sources:     cli.EnvVars("CHIRON_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output destination [stdout, stderr, or file path]",
			Value:       "stdout",
			Sources:     cli.EnvVars("CHIRON_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

// LogValue returns log attributes for the logger configuration itself
func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

// Configure builds the process-wide logger and installs it as the default.
// The returned closer releases the log file when output is a path.
func (x *Logger) Configure() (func(), error) {
	closer := func() {}

	var w io.Writer
	switch x.output {
	case "stdout", "-":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(x.output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		w = f
		closer = func() {
			_ = f.Close()
		}
	}

	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	level, ok := levels[strings.ToLower(x.level)]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid log level", goerr.V("level", x.level))
	}

	// Credentials never reach the log output, whatever the caller passes
	filter := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldPrefix("secret_"),
		masq.WithType[types.Secret](),
	)

	var handler slog.Handler
	switch strings.ToLower(x.format) {
	case "console":
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithSource(true),
			clog.WithTimeFmt("2006-01-02 15:04:05"),
			clog.WithColorMap(&clog.ColorMap{
				Level: map[slog.Level]*color.Color{
					slog.LevelDebug: color.New(color.FgGreen, color.Bold),
					slog.LevelInfo:  color.New(color.FgCyan, color.Bold),
					slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
					slog.LevelError: color.New(color.FgRed, color.Bold),
				},
				LevelDefault: color.New(color.FgBlue, color.Bold),
				Time:         color.New(color.FgWhite),
				Message:      color.New(color.FgHiWhite),
				AttrKey:      color.New(color.FgHiCyan),
				AttrValue:    color.New(color.FgHiWhite),
			}),
		)
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       level,
			ReplaceAttr: filter,
		})
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid log format", goerr.V("format", x.format))
	}

	logging.SetDefault(slog.New(handler))
	return closer, nil
}
