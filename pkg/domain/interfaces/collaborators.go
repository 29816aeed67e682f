package interfaces

import (
	"context"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// Transcriber converts a captured utterance to text.
// Implementations return types.ErrTranscriptionFailed (possibly wrapping
// types.ErrDeadlineExceeded) on empty or low-confidence results.
type Transcriber interface {
	Transcribe(ctx context.Context, utterance *model.Utterance) (string, error)
}

// Generator produces a tutoring answer from a prepared input. Implementations
// return types.ErrGenerationFailed on empty, timed-out, or rejected requests.
type Generator interface {
	Generate(ctx context.Context, input *model.TutorInput) (*model.Answer, error)
}

// Synthesizer converts answer text to audio. Best-effort: callers treat
// failures as a warning, never as a pipeline failure.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*model.Synthesis, error)
}

// AudioStore persists audio artifacts (synthesized answers, captured
// utterances) and returns a reference usable to retrieve them later.
type AudioStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}
