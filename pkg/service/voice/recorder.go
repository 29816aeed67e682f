package voice

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

// TurnRecorder segments a stream of PCM frames into utterances. Feed is
// synchronous and does no I/O; all timing is derived from frame byte counts,
// never from the wall clock, so frame sequences drive the machine
// deterministically.
//
// A recorder belongs to exactly one stream and is not safe for concurrent
// use.
type TurnRecorder struct {
	cfg      Config
	detector Detector
	logger   *slog.Logger

	state       types.TurnState
	frames      []model.AudioFrame
	trailing    []model.AudioFrame
	elapsed     time.Duration
	trailingDur time.Duration
	startedAt   time.Time
}

// RecorderOption configures a TurnRecorder
type RecorderOption func(*TurnRecorder)

// WithDetector replaces the default energy detector
func WithDetector(d Detector) RecorderOption {
	return func(r *TurnRecorder) {
		r.detector = d
	}
}

// WithLogger sets the logger used for capture events
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *TurnRecorder) {
		r.logger = logger
	}
}

// NewTurnRecorder creates a recorder with validated capture parameters
func NewTurnRecorder(cfg Config, opts ...RecorderOption) (*TurnRecorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid voice capture config")
	}

	r := &TurnRecorder{
		cfg:      cfg,
		detector: NewEnergyDetector(cfg.EnergyThreshold),
		logger:   logging.Default(),
		state:    types.TurnStateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the current capture state
func (r *TurnRecorder) State() types.TurnState {
	return r.state
}

// Feed processes one PCM frame. It returns a finished utterance and true
// exactly once per capture episode; every emitted utterance contains at
// least one speech frame. Emission resets the machine to idle, so the next
// frame starts a fresh episode.
func (r *TurnRecorder) Feed(pcm []byte) (*model.Utterance, bool) {
	if len(pcm) == 0 {
		return nil, false
	}

	isSpeech := r.detector.Classify(pcm)
	frame := model.AudioFrame{PCM: append([]byte(nil), pcm...), IsSpeech: isSpeech}
	dur := r.cfg.Format.Duration(len(pcm))

	switch r.state {
	case types.TurnStateIdle:
		if !isSpeech {
			// silence before any speech is dropped, not buffered
			return nil, false
		}
		r.state = types.TurnStateRecording
		r.startedAt = time.Now().UTC()
		r.frames = append(r.frames, frame)
		r.elapsed = dur
		if r.elapsed >= r.cfg.MaxTurnDuration {
			return r.emit(types.EndReasonMaxDuration), true
		}
		return nil, false

	case types.TurnStateRecording:
		r.elapsed += dur
		if isSpeech {
			r.frames = append(r.frames, frame)
			if r.elapsed >= r.cfg.MaxTurnDuration {
				return r.emit(types.EndReasonMaxDuration), true
			}
			return nil, false
		}
		r.state = types.TurnStateTrailingSilence
		r.trailing = append(r.trailing, frame)
		r.trailingDur = dur
		return r.checkSilenceEnd()

	case types.TurnStateTrailingSilence:
		r.elapsed += dur
		if isSpeech {
			// the pause was within the utterance: keep it and resume
			r.frames = append(r.frames, r.trailing...)
			r.frames = append(r.frames, frame)
			r.trailing = nil
			r.trailingDur = 0
			r.state = types.TurnStateRecording
			if r.elapsed >= r.cfg.MaxTurnDuration {
				return r.emit(types.EndReasonMaxDuration), true
			}
			return nil, false
		}
		r.trailing = append(r.trailing, frame)
		r.trailingDur += dur
		return r.checkSilenceEnd()
	}

	return nil, false
}

// checkSilenceEnd decides emission while trailing silence accumulates. The
// natural silence ending wins over the max-duration cutoff when both are
// reached by the same frame.
func (r *TurnRecorder) checkSilenceEnd() (*model.Utterance, bool) {
	if r.trailingDur >= r.cfg.SilenceThreshold {
		return r.emit(types.EndReasonSilence), true
	}
	if r.elapsed >= r.cfg.MaxTurnDuration {
		return r.emit(types.EndReasonMaxDuration), true
	}
	return nil, false
}

// Abort discards the episode from any state and returns to idle
func (r *TurnRecorder) Abort() {
	r.reset()
}

func (r *TurnRecorder) emit(reason types.EndReason) *model.Utterance {
	frames := r.frames
	if reason == types.EndReasonMaxDuration && len(r.trailing) > 0 {
		// forced cutoff keeps the tentative silence; only a qualifying
		// trailing run is excluded
		frames = append(frames, r.trailing...)
	}

	u := &model.Utterance{
		Frames:    frames,
		Format:    r.cfg.Format,
		StartedAt: r.startedAt,
		EndReason: reason,
	}

	if reason == types.EndReasonMaxDuration {
		r.logger.Warn("turn capture forced to end at max duration",
			"state", types.TurnStateEmitted,
			"elapsed", r.elapsed,
			"max_turn_duration", r.cfg.MaxTurnDuration,
			"frames", len(frames),
		)
	} else {
		r.logger.Debug("turn capture ended",
			"state", types.TurnStateEmitted,
			"reason", reason,
			"elapsed", r.elapsed,
			"frames", len(frames),
		)
	}

	r.reset()
	return u
}

func (r *TurnRecorder) reset() {
	r.state = types.TurnStateIdle
	r.frames = nil
	r.trailing = nil
	r.elapsed = 0
	r.trailingDur = 0
	r.startedAt = time.Time{}
}
