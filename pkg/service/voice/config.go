package voice

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// Capture defaults. Tuned for close-range speech on a 16 kHz microphone.
const (
	DefaultFrameDuration    = 30 * time.Millisecond
	DefaultSilenceThreshold = 1 * time.Second
	DefaultMaxTurnDuration  = 30 * time.Second
	DefaultEnergyThreshold  = 0.02
)

// Config holds the voice capture parameters. All thresholds are explicit
// here; nothing is hardcoded in the recorder.
type Config struct {
	Format           model.AudioFormat
	FrameDuration    time.Duration
	SilenceThreshold time.Duration
	MaxTurnDuration  time.Duration
	EnergyThreshold  float64
}

// DefaultConfig returns the standard capture parameters
func DefaultConfig() Config {
	return Config{
		Format:           model.DefaultAudioFormat(),
		FrameDuration:    DefaultFrameDuration,
		SilenceThreshold: DefaultSilenceThreshold,
		MaxTurnDuration:  DefaultMaxTurnDuration,
		EnergyThreshold:  DefaultEnergyThreshold,
	}
}

// Validate checks that the configuration is usable for capture
func (c *Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return goerr.Wrap(err, "invalid audio format")
	}
	if c.FrameDuration <= 0 {
		return goerr.New("frame duration must be positive",
			goerr.V("frame_duration", c.FrameDuration))
	}
	if c.SilenceThreshold <= 0 {
		return goerr.New("silence threshold must be positive",
			goerr.V("silence_threshold", c.SilenceThreshold))
	}
	if c.MaxTurnDuration <= c.SilenceThreshold {
		return goerr.New("max turn duration must exceed the silence threshold",
			goerr.V("max_turn_duration", c.MaxTurnDuration),
			goerr.V("silence_threshold", c.SilenceThreshold))
	}
	if c.EnergyThreshold <= 0 || c.EnergyThreshold >= 1 {
		return goerr.New("energy threshold must be within (0, 1)",
			goerr.V("energy_threshold", c.EnergyThreshold))
	}
	return nil
}

// FrameBytes returns the PCM size of one frame at the configured format
func (c *Config) FrameBytes() int {
	return c.Format.BytesForDuration(c.FrameDuration)
}
