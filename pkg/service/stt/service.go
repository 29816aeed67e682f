package stt

import (
	"context"
	"errors"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// client implements Service interface
type client struct {
	speech          *speech.Client
	recognize       func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	languageCode    string
	model           string
	confidenceFloor float64
	maxRetries      int
	backoffBase     time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

// WithLanguageCode sets the BCP-47 recognition language
func WithLanguageCode(code string) Option {
	return func(c *client) {
		if code != "" {
			c.languageCode = code
		}
	}
}

// WithModel selects the recognition model, e.g. "latest_short" or "phone_call"
func WithModel(name string) Option {
	return func(c *client) {
		c.model = name
	}
}

// WithConfidenceFloor sets the minimum accepted recognition confidence
func WithConfidenceFloor(floor float64) Option {
	return func(c *client) {
		if floor >= 0 && floor <= 1 {
			c.confidenceFloor = floor
		}
	}
}

// WithMaxRetries sets how many times transient API errors are retried
func WithMaxRetries(n int) Option {
	return func(c *client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// New creates a transcription service backed by Cloud Speech-to-Text.
// Credentials are resolved from the environment.
func New(ctx context.Context, opts ...Option) (Service, error) {
	sc, err := speech.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create speech client")
	}

	c := newClient(opts...)
	c.speech = sc
	c.recognize = func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return sc.Recognize(ctx, req)
	}
	return c, nil
}

func newClient(opts ...Option) *client {
	c := &client{
		languageCode:    DefaultLanguageCode,
		model:           DefaultModel,
		confidenceFloor: DefaultConfidenceFloor,
		maxRetries:      defaultMaxRetries,
		backoffBase:     750 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying API connection
func (c *client) Close() error {
	if c == nil || c.speech == nil {
		return nil
	}
	return c.speech.Close()
}

// Transcribe recognizes the utterance and returns the best transcript.
// Results whose confidence falls below the floor are rejected rather than
// passed downstream as garbage input.
func (c *client) Transcribe(ctx context.Context, utterance *model.Utterance) (string, error) {
	if utterance == nil {
		return "", goerr.Wrap(types.ErrTranscriptionFailed, "utterance is required")
	}
	pcm := utterance.PCM()
	if len(pcm) == 0 {
		return "", goerr.Wrap(types.ErrTranscriptionFailed, "utterance has no audio")
	}

	cfg, err := c.buildRecognitionConfig(utterance.Format)
	if err != nil {
		return "", err
	}

	req := &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	}

	resp, err := c.retryRecognize(ctx, req)
	if err != nil {
		return "", wrapTranscriptionErr(err, "speech recognition failed")
	}

	return c.parseResponse(resp)
}

// buildRecognitionConfig maps the capture format onto the API config
func (c *client) buildRecognitionConfig(format model.AudioFormat) (*speechpb.RecognitionConfig, error) {
	if err := format.Validate(); err != nil {
		return nil, goerr.Wrap(types.ErrTranscriptionFailed, "invalid audio format",
			goerr.V("cause", err.Error()))
	}
	if format.BitsPerSample != 16 {
		return nil, goerr.Wrap(types.ErrTranscriptionFailed, "recognition requires 16-bit PCM",
			goerr.V("bits_per_sample", format.BitsPerSample))
	}

	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(format.SampleRateHz),
		AudioChannelCount:          int32(format.Channels),
		LanguageCode:               c.languageCode,
		Model:                      c.model,
		EnableAutomaticPunctuation: true,
	}, nil
}

// retryRecognize retries transient API errors with exponential backoff
func (c *client) retryRecognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	backoff := c.backoffBase
	var last error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := c.recognize(ctx, req)
		if err == nil {
			return resp, nil
		}
		last = err

		if !retryableCode(status.Code(err)) {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}

func retryableCode(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}

// parseResponse joins the highest-confidence alternative of each result.
// Zero confidence means the API did not score the alternative, so only
// scored alternatives count against the floor.
func (c *client) parseResponse(resp *speechpb.RecognizeResponse) (string, error) {
	if resp == nil || len(resp.Results) == 0 {
		return "", goerr.Wrap(types.ErrTranscriptionFailed, "no recognition results")
	}

	var full strings.Builder
	lowest := float32(-1)
	for _, r := range resp.Results {
		alt := bestAlternative(r)
		if alt == nil || strings.TrimSpace(alt.Transcript) == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(strings.TrimSpace(alt.Transcript))

		if alt.Confidence > 0 && (lowest < 0 || alt.Confidence < lowest) {
			lowest = alt.Confidence
		}
	}

	transcript := full.String()
	if transcript == "" {
		return "", goerr.Wrap(types.ErrTranscriptionFailed, "empty transcript")
	}
	if lowest >= 0 && float64(lowest) < c.confidenceFloor {
		return "", goerr.Wrap(types.ErrTranscriptionFailed, "recognition confidence below floor",
			goerr.V("confidence", lowest), goerr.V("floor", c.confidenceFloor))
	}
	return transcript, nil
}

func bestAlternative(r *speechpb.SpeechRecognitionResult) *speechpb.SpeechRecognitionAlternative {
	if r == nil {
		return nil
	}
	var best *speechpb.SpeechRecognitionAlternative
	for _, alt := range r.Alternatives {
		if alt == nil {
			continue
		}
		if best == nil || alt.Confidence > best.Confidence {
			best = alt
		}
	}
	return best
}

// wrapTranscriptionErr maps timeouts onto the deadline sentinel so callers
// can distinguish a slow collaborator from a failed one
func wrapTranscriptionErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || status.Code(err) == codes.DeadlineExceeded {
		return goerr.Wrap(types.ErrDeadlineExceeded, msg, goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(types.ErrTranscriptionFailed, msg, goerr.V("cause", err.Error()))
}
