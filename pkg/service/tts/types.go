package tts

import (
	"context"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// Service turns answer text into playable audio
type Service interface {
	Synthesize(ctx context.Context, text string) (*model.Synthesis, error)
}

// Synthesis defaults for the Cartesia bytes endpoint
const (
	DefaultBaseURL    = "https://api.cartesia.ai"
	DefaultModelID    = "sonic-3"
	DefaultVoiceID    = "a0e99841-438c-4a64-b679-ae501e7d6091"
	DefaultSampleRate = 24000
	DefaultFormat     = "wav"
)

const cartesiaVersion = "2025-04-16"
