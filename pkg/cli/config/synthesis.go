package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/tts"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// Synthesis holds CLI flags for the text-to-speech service
type Synthesis struct {
	apiKey     string
	baseURL    string
	voice      string
	modelID    string
	sampleRate int
	format     string
}

// Flags returns CLI flags for speech synthesis configuration
func (s *Synthesis) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tts-api-key",
			Usage:       "Cartesia API key (leave empty for text-only answers)",
			Sources:     cli.EnvVars("CHIRON_TTS_API_KEY"),
			Destination: &s.apiKey,
		},
		&cli.StringFlag{
			Name:        "tts-base-url",
			Usage:       "Override the synthesis API endpoint",
			Sources:     cli.EnvVars("CHIRON_TTS_BASE_URL"),
			Destination: &s.baseURL,
		},
		&cli.StringFlag{
			Name:        "tts-voice",
			Usage:       "Voice ID for synthesized answers",
			Sources:     cli.EnvVars("CHIRON_TTS_VOICE"),
			Destination: &s.voice,
		},
		&cli.StringFlag{
			Name:        "tts-model",
			Usage:       "Synthesis model ID",
			Sources:     cli.EnvVars("CHIRON_TTS_MODEL"),
			Destination: &s.modelID,
		},
		&cli.IntFlag{
			Name:        "tts-sample-rate",
			Usage:       "Output sample rate in Hz",
			Sources:     cli.EnvVars("CHIRON_TTS_SAMPLE_RATE"),
			Destination: &s.sampleRate,
		},
		&cli.StringFlag{
			Name:        "tts-format",
			Usage:       "Output audio format [wav, mp3, pcm]",
			Value:       "wav",
			Sources:     cli.EnvVars("CHIRON_TTS_FORMAT"),
			Destination: &s.format,
		},
	}
}

// LogAttrs returns log attributes for the synthesis configuration
func (s *Synthesis) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Any("api_key", types.Secret(s.apiKey)),
		slog.String("voice", s.voice),
		slog.String("model", s.modelID),
		slog.String("format", s.format),
	}
}

// Enabled reports whether an API key is configured
func (s *Synthesis) Enabled() bool {
	return s.apiKey != ""
}

// Configure creates the text-to-speech service. Returns nil if no API key
// is configured (answers stay text-only).
func (s *Synthesis) Configure() (tts.Service, error) {
	if s.apiKey == "" {
		logging.Default().Info("Speech synthesis is not configured, answers are text only")
		return nil, nil
	}

	svc, err := tts.New(s.apiKey,
		tts.WithBaseURL(s.baseURL),
		tts.WithVoice(s.voice),
		tts.WithModelID(s.modelID),
		tts.WithSampleRate(s.sampleRate),
		tts.WithFormat(s.format),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create speech synthesis service")
	}

	logging.Default().Info("Using Cartesia speech synthesis",
		"voice", s.voice,
		"format", s.format,
	)
	return svc, nil
}
