package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/tts"
)

type capturedRequest struct {
	ModelID    string `json:"model_id"`
	Transcript string `json:"transcript"`
	Voice      struct {
		Mode string `json:"mode"`
		ID   string `json:"id"`
	} `json:"voice"`
	OutputFormat struct {
		Container  string `json:"container"`
		Encoding   string `json:"encoding"`
		SampleRate int    `json:"sample_rate"`
		BitRate    int    `json:"bit_rate"`
	} `json:"output_format"`
}

func TestSynthesize(t *testing.T) {
	t.Run("posts transcript and returns audio", func(t *testing.T) {
		var captured capturedRequest
		var authHeader, versionHeader string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.Method).Equal(http.MethodPost)
			gt.Value(t, r.URL.Path).Equal("/tts/bytes")
			authHeader = r.Header.Get("Authorization")
			versionHeader = r.Header.Get("Cartesia-Version")

			body, err := io.ReadAll(r.Body)
			gt.NoError(t, err).Required()
			gt.NoError(t, json.Unmarshal(body, &captured)).Required()

			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("RIFF-fake-wav-bytes"))
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL))
		gt.NoError(t, err).Required()

		synth, err := svc.Synthesize(context.Background(), "Photosynthesis converts light into chemical energy.")
		gt.NoError(t, err).Required()
		gt.Value(t, string(synth.Audio)).Equal("RIFF-fake-wav-bytes")
		gt.Value(t, synth.Format).Equal("wav")

		gt.Value(t, authHeader).Equal("Bearer test-key")
		gt.String(t, versionHeader).NotEqual("")
		gt.Value(t, captured.ModelID).Equal(tts.DefaultModelID)
		gt.Value(t, captured.Transcript).Equal("Photosynthesis converts light into chemical energy.")
		gt.Value(t, captured.Voice.Mode).Equal("id")
		gt.Value(t, captured.Voice.ID).Equal(tts.DefaultVoiceID)
		gt.Value(t, captured.OutputFormat.Container).Equal("wav")
		gt.Value(t, captured.OutputFormat.Encoding).Equal("pcm_s16le")
		gt.Value(t, captured.OutputFormat.SampleRate).Equal(tts.DefaultSampleRate)
	})

	t.Run("custom voice and sample rate", func(t *testing.T) {
		var captured capturedRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &captured)
			_, _ = w.Write([]byte("audio"))
		}))
		defer srv.Close()

		svc, err := tts.New("test-key",
			tts.WithBaseURL(srv.URL),
			tts.WithVoice("voice-123"),
			tts.WithSampleRate(16000),
		)
		gt.NoError(t, err).Required()

		_, err = svc.Synthesize(context.Background(), "hello")
		gt.NoError(t, err).Required()
		gt.Value(t, captured.Voice.ID).Equal("voice-123")
		gt.Value(t, captured.OutputFormat.SampleRate).Equal(16000)
	})

	t.Run("mp3 format sets container and bit rate", func(t *testing.T) {
		var captured capturedRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &captured)
			_, _ = w.Write([]byte("mp3-bytes"))
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL), tts.WithFormat("mp3"))
		gt.NoError(t, err).Required()

		synth, err := svc.Synthesize(context.Background(), "hello")
		gt.NoError(t, err).Required()
		gt.Value(t, synth.Format).Equal("mp3")
		gt.Value(t, captured.OutputFormat.Container).Equal("mp3")
		gt.Number(t, captured.OutputFormat.BitRate).GreaterOrEqual(1)
	})

	t.Run("unknown format keeps the default", func(t *testing.T) {
		var captured capturedRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &captured)
			_, _ = w.Write([]byte("audio"))
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL), tts.WithFormat("ogg"))
		gt.NoError(t, err).Required()

		synth, err := svc.Synthesize(context.Background(), "hello")
		gt.NoError(t, err).Required()
		gt.Value(t, synth.Format).Equal("wav")
		gt.Value(t, captured.OutputFormat.Container).Equal("wav")
	})

	t.Run("no content yields empty audio without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL))
		gt.NoError(t, err).Required()

		synth, err := svc.Synthesize(context.Background(), "hello")
		gt.NoError(t, err).Required()
		gt.Number(t, len(synth.Audio)).Equal(0)
	})

	t.Run("api error maps to the synthesis sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("upstream boom"))
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL))
		gt.NoError(t, err).Required()

		_, err = svc.Synthesize(context.Background(), "hello")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrSynthesisFailed)).True()
	})

	t.Run("timeout maps to the deadline sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("too late"))
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL))
		gt.NoError(t, err).Required()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = svc.Synthesize(ctx, "hello")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrDeadlineExceeded)).True()
	})

	t.Run("empty text rejected without a request", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		svc, err := tts.New("test-key", tts.WithBaseURL(srv.URL))
		gt.NoError(t, err).Required()

		_, err = svc.Synthesize(context.Background(), "")
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrSynthesisFailed)).True()
		gt.Number(t, calls).Equal(0)
	})
}

func TestNew(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := tts.New("")
		gt.Error(t, err)
	})
}
