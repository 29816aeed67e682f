package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/service/stt"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Speech holds CLI flags for the speech-to-text service
type Speech struct {
	enabled         bool
	language        string
	model           string
	confidenceFloor float64
}

// Flags returns CLI flags for speech recognition configuration
func (s *Speech) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "stt-enabled",
			Usage:       "Enable speech-to-text via Cloud Speech (voice turns fail without it)",
			Sources:     cli.EnvVars("CHIRON_STT_ENABLED"),
			Destination: &s.enabled,
		},
		&cli.StringFlag{
			Name:        "stt-language",
			Usage:       "Recognition language code",
			Value:       "en-US",
			Sources:     cli.EnvVars("CHIRON_STT_LANGUAGE"),
			Destination: &s.language,
		},
		&cli.StringFlag{
			Name:        "stt-model",
			Usage:       "Cloud Speech recognition model",
			Value:       "latest_short",
			Sources:     cli.EnvVars("CHIRON_STT_MODEL"),
			Destination: &s.model,
		},
		&cli.FloatFlag{
			Name:        "stt-confidence-floor",
			Usage:       "Transcripts below this confidence are treated as not understood",
			Value:       0.5,
			Sources:     cli.EnvVars("CHIRON_STT_CONFIDENCE_FLOOR"),
			Destination: &s.confidenceFloor,
		},
	}
}

// LogAttrs returns log attributes for the speech configuration
func (s *Speech) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Bool("enabled", s.enabled),
		slog.String("language", s.language),
		slog.String("model", s.model),
		slog.Float64("confidence_floor", s.confidenceFloor),
	}
}

// Configure creates the speech-to-text service. Returns nil if the
// service is disabled (voice turns are rejected, text chat still works).
// The caller is responsible for calling Close() on the returned service.
func (s *Speech) Configure(ctx context.Context) (stt.Service, error) {
	if !s.enabled {
		logging.Default().Info("Speech-to-text is disabled, text chat only")
		return nil, nil
	}

	svc, err := stt.New(ctx,
		stt.WithLanguageCode(s.language),
		stt.WithModel(s.model),
		stt.WithConfidenceFloor(s.confidenceFloor),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create speech-to-text service")
	}

	logging.Default().Info("Using Cloud Speech transcription",
		"language", s.language,
		"model", s.model,
	)
	return svc, nil
}
