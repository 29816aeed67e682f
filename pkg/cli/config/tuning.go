package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/chiron-lab/chiron/pkg/service/voice"
	"github.com/chiron-lab/chiron/pkg/usecase"
)

// Tuning represents the pipeline tuning file. Every field is optional;
// a zero value keeps the built-in default.
type Tuning struct {
	Voice    VoiceTuning    `toml:"voice"`
	Pipeline PipelineTuning `toml:"pipeline"`
}

// VoiceTuning adjusts the turn capture parameters
type VoiceTuning struct {
	SampleRateHz       int     `toml:"sample_rate_hz"`
	FrameDurationMs    int     `toml:"frame_duration_ms"`
	SilenceThresholdMs int     `toml:"silence_threshold_ms"`
	MaxTurnDurationMs  int     `toml:"max_turn_duration_ms"`
	EnergyThreshold    float64 `toml:"energy_threshold"`
}

// Validate checks if the VoiceTuning is valid
func (v *VoiceTuning) Validate() error {
	if v.SampleRateHz < 0 {
		return goerr.New("sample rate must not be negative", goerr.V("sample_rate_hz", v.SampleRateHz))
	}
	if v.FrameDurationMs < 0 {
		return goerr.New("frame duration must not be negative", goerr.V("frame_duration_ms", v.FrameDurationMs))
	}
	if v.SilenceThresholdMs < 0 {
		return goerr.New("silence threshold must not be negative", goerr.V("silence_threshold_ms", v.SilenceThresholdMs))
	}
	if v.MaxTurnDurationMs < 0 {
		return goerr.New("max turn duration must not be negative", goerr.V("max_turn_duration_ms", v.MaxTurnDurationMs))
	}
	if v.EnergyThreshold < 0 || v.EnergyThreshold >= 1 {
		return goerr.New("energy threshold must be within [0, 1)", goerr.V("energy_threshold", v.EnergyThreshold))
	}
	return nil
}

// PipelineTuning adjusts how much context each answer carries
type PipelineTuning struct {
	HistoryLimit    int `toml:"history_limit"`
	MaxContextNodes int `toml:"max_context_nodes"`
	MaxContextChars int `toml:"max_context_chars"`
}

// Validate checks if the PipelineTuning is valid
func (p *PipelineTuning) Validate() error {
	if p.HistoryLimit < 0 {
		return goerr.New("history limit must not be negative", goerr.V("history_limit", p.HistoryLimit))
	}
	if p.MaxContextNodes < 0 {
		return goerr.New("max context nodes must not be negative", goerr.V("max_context_nodes", p.MaxContextNodes))
	}
	if p.MaxContextChars < 0 {
		return goerr.New("max context chars must not be negative", goerr.V("max_context_chars", p.MaxContextChars))
	}
	return nil
}

// Validate checks if the Tuning is valid
func (t *Tuning) Validate() error {
	if err := t.Voice.Validate(); err != nil {
		return goerr.Wrap(err, "invalid voice tuning")
	}
	if err := t.Pipeline.Validate(); err != nil {
		return goerr.Wrap(err, "invalid pipeline tuning")
	}
	return nil
}

// LoadTuning loads the pipeline tuning from a TOML file
func LoadTuning(path string) (*Tuning, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tuning file", goerr.V("path", path))
	}

	var tuning Tuning
	if err := toml.Unmarshal(data, &tuning); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML tuning", goerr.V("path", path))
	}

	if err := tuning.Validate(); err != nil {
		return nil, goerr.Wrap(err, "tuning validation failed", goerr.V("path", path))
	}

	return &tuning, nil
}

// ToVoiceConfig converts the voice tuning to a capture configuration,
// keeping defaults for unset fields
func (t *Tuning) ToVoiceConfig() voice.Config {
	cfg := voice.DefaultConfig()
	if t.Voice.SampleRateHz > 0 {
		cfg.Format.SampleRateHz = t.Voice.SampleRateHz
	}
	if t.Voice.FrameDurationMs > 0 {
		cfg.FrameDuration = time.Duration(t.Voice.FrameDurationMs) * time.Millisecond
	}
	if t.Voice.SilenceThresholdMs > 0 {
		cfg.SilenceThreshold = time.Duration(t.Voice.SilenceThresholdMs) * time.Millisecond
	}
	if t.Voice.MaxTurnDurationMs > 0 {
		cfg.MaxTurnDuration = time.Duration(t.Voice.MaxTurnDurationMs) * time.Millisecond
	}
	if t.Voice.EnergyThreshold > 0 {
		cfg.EnergyThreshold = t.Voice.EnergyThreshold
	}
	return cfg
}

// UseCaseOptions converts the pipeline tuning to usecase options
func (t *Tuning) UseCaseOptions() []usecase.Option {
	var opts []usecase.Option
	if t.Pipeline.HistoryLimit > 0 {
		opts = append(opts, usecase.WithHistoryLimit(t.Pipeline.HistoryLimit))
	}
	if t.Pipeline.MaxContextNodes > 0 {
		opts = append(opts, usecase.WithMaxContextNodes(t.Pipeline.MaxContextNodes))
	}
	if t.Pipeline.MaxContextChars > 0 {
		opts = append(opts, usecase.WithMaxContextChars(t.Pipeline.MaxContextChars))
	}
	return opts
}
