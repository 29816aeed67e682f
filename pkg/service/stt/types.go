package stt

import (
	"context"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// Service turns captured utterances into text
type Service interface {
	// Transcribe recognizes the utterance audio and returns the transcript
	Transcribe(ctx context.Context, utterance *model.Utterance) (string, error)

	// Close releases the underlying API connection
	Close() error
}

// Recognition defaults. The short model is tuned for audio of the length
// the turn recorder emits.
const (
	DefaultLanguageCode    = "en-US"
	DefaultModel           = "latest_short"
	DefaultConfidenceFloor = 0.5
)

const defaultMaxRetries = 4
