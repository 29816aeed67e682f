package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/utils/safe"
)

// client implements Service interface
type client struct {
	apiKey     string
	baseURL    string
	modelID    string
	voiceID    string
	sampleRate int
	format     string
	httpClient *http.Client
}

// Option is a functional option for client configuration
type Option func(*client)

// WithBaseURL overrides the API endpoint, mainly for tests
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithVoice selects the synthesis voice
func WithVoice(voiceID string) Option {
	return func(c *client) {
		if voiceID != "" {
			c.voiceID = voiceID
		}
	}
}

// WithModelID selects the synthesis model
func WithModelID(modelID string) Option {
	return func(c *client) {
		if modelID != "" {
			c.modelID = modelID
		}
	}
}

// WithSampleRate sets the output sample rate in Hz
func WithSampleRate(hz int) Option {
	return func(c *client) {
		if hz > 0 {
			c.sampleRate = hz
		}
	}
}

// WithFormat selects the output container: wav, mp3, pcm or raw.
// Unknown values keep the default.
func WithFormat(format string) Option {
	return func(c *client) {
		switch format {
		case "wav", "mp3", "pcm", "raw":
			c.format = format
		}
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a synthesis service backed by the Cartesia TTS API
func New(apiKey string, opts ...Option) (Service, error) {
	if apiKey == "" {
		return nil, goerr.New("API key is required")
	}

	c := &client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		modelID:    DefaultModelID,
		voiceID:    DefaultVoiceID,
		sampleRate: DefaultSampleRate,
		format:     DefaultFormat,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type synthesisRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
}

type voiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

// Synthesize converts text to audio via the bytes endpoint
func (c *client) Synthesize(ctx context.Context, text string) (*model.Synthesis, error) {
	if text == "" {
		return nil, goerr.Wrap(types.ErrSynthesisFailed, "text is required")
	}

	body, err := json.Marshal(synthesisRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice: voiceSpec{
			Mode: "id",
			ID:   c.voiceID,
		},
		OutputFormat: c.buildOutputFormat(),
	})
	if err != nil {
		return nil, goerr.Wrap(types.ErrSynthesisFailed, "failed to marshal request",
			goerr.V("cause", err.Error()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(types.ErrSynthesisFailed, "failed to create request",
			goerr.V("cause", err.Error()))
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapSynthesisErr(err, "synthesis request failed")
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return &model.Synthesis{Audio: []byte{}, Format: c.format}, nil
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, goerr.Wrap(types.ErrSynthesisFailed, "synthesis API error",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(errBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapSynthesisErr(err, "failed to read audio")
	}

	return &model.Synthesis{
		Audio:  audio,
		Format: c.format,
	}, nil
}

func (c *client) buildOutputFormat() outputFormat {
	switch c.format {
	case "mp3":
		return outputFormat{
			Container:  "mp3",
			SampleRate: c.sampleRate,
			BitRate:    128000,
		}
	case "pcm", "raw":
		return outputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.sampleRate,
		}
	default:
		return outputFormat{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: c.sampleRate,
		}
	}
}

// wrapSynthesisErr maps timeouts onto the deadline sentinel so callers
// can distinguish a slow collaborator from a failed one
func wrapSynthesisErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerr.Wrap(types.ErrDeadlineExceeded, msg, goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(types.ErrSynthesisFailed, msg, goerr.V("cause", err.Error()))
}
