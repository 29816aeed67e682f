package stt_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/m-mizutani/gt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/stt"
)

func testUtterance(t *testing.T) *model.Utterance {
	t.Helper()
	format := model.DefaultAudioFormat()
	return &model.Utterance{
		Frames: []model.AudioFrame{
			{PCM: make([]byte, format.BytesForDuration(100*time.Millisecond)), IsSpeech: true},
		},
		Format:    format,
		StartedAt: time.Now().UTC(),
		EndReason: types.EndReasonSilence,
	}
}

func singleResult(transcript string, confidence float32) *speechpb.RecognizeResponse {
	return &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{Transcript: transcript, Confidence: confidence},
				},
			},
		},
	}
}

func TestTranscribe(t *testing.T) {
	t.Run("sends linear16 config built from the capture format", func(t *testing.T) {
		var captured *speechpb.RecognizeRequest
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			captured = req
			return singleResult("what is photosynthesis?", 0.94), nil
		})

		text, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("what is photosynthesis?")

		gt.Value(t, captured).NotNil().Required()
		cfg := captured.Config
		gt.Value(t, cfg.Encoding).Equal(speechpb.RecognitionConfig_LINEAR16)
		gt.Value(t, cfg.SampleRateHertz).Equal(int32(16000))
		gt.Value(t, cfg.AudioChannelCount).Equal(int32(1))
		gt.Value(t, cfg.LanguageCode).Equal(stt.DefaultLanguageCode)
		gt.Value(t, cfg.Model).Equal(stt.DefaultModel)
		gt.Bool(t, cfg.EnableAutomaticPunctuation).True()
		gt.Number(t, len(captured.GetAudio().GetContent())).Equal(3200)
	})

	t.Run("picks the highest confidence alternative", func(t *testing.T) {
		resp := &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{
					Alternatives: []*speechpb.SpeechRecognitionAlternative{
						{Transcript: "weather photosynthesis", Confidence: 0.41},
						{Transcript: "what is photosynthesis", Confidence: 0.87},
						{Transcript: "what a synthesis", Confidence: 0.52},
					},
				},
			},
		}
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return resp, nil
		})

		text, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("what is photosynthesis")
	})

	t.Run("joins multiple results in order", func(t *testing.T) {
		resp := &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "tell me about", Confidence: 0.9}}},
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " cellular respiration ", Confidence: 0.85}}},
			},
		}
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return resp, nil
		})

		text, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("tell me about cellular respiration")
	})

	t.Run("rejects empty results", func(t *testing.T) {
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return &speechpb.RecognizeResponse{}, nil
		})

		_, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
	})

	t.Run("rejects confidence below the floor", func(t *testing.T) {
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return singleResult("mumbled noise", 0.31), nil
		})

		_, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
	})

	t.Run("custom floor accepts lower confidence", func(t *testing.T) {
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return singleResult("mumbled but usable", 0.31), nil
		}, stt.WithConfidenceFloor(0.2))

		text, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("mumbled but usable")
	})

	t.Run("unscored results bypass the floor", func(t *testing.T) {
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return singleResult("confidence not reported", 0), nil
		})

		text, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("confidence not reported")
	})

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			calls++
			if calls < 3 {
				return nil, status.Error(codes.Unavailable, "backend unavailable")
			}
			return singleResult("recovered after retry", 0.9), nil
		})

		text, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal("recovered after retry")
		gt.Number(t, calls).Equal(3)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			calls++
			return nil, status.Error(codes.ResourceExhausted, "quota")
		}, stt.WithMaxRetries(2))

		_, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
		gt.Number(t, calls).Equal(3)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		calls := 0
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			calls++
			return nil, status.Error(codes.InvalidArgument, "bad encoding")
		})

		_, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
		gt.Number(t, calls).Equal(1)
	})

	t.Run("maps deadline to the deadline sentinel", func(t *testing.T) {
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return nil, status.Error(codes.DeadlineExceeded, "too slow")
		}, stt.WithMaxRetries(0))

		_, err := svc.Transcribe(context.Background(), testUtterance(t))
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrDeadlineExceeded)).True()
	})

	t.Run("canceled context stops before calling the API", func(t *testing.T) {
		calls := 0
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			calls++
			return singleResult("should not run", 0.9), nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Transcribe(ctx, testUtterance(t))
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrDeadlineExceeded)).True()
		gt.Number(t, calls).Equal(0)
	})

	t.Run("rejects empty utterance", func(t *testing.T) {
		calls := 0
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			calls++
			return singleResult("should not run", 0.9), nil
		})

		_, err := svc.Transcribe(context.Background(), nil)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()

		_, err = svc.Transcribe(context.Background(), &model.Utterance{Format: model.DefaultAudioFormat()})
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
		gt.Number(t, calls).Equal(0)
	})

	t.Run("rejects unsupported sample width", func(t *testing.T) {
		calls := 0
		svc := stt.NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			calls++
			return singleResult("should not run", 0.9), nil
		})

		u := testUtterance(t)
		u.Format.BitsPerSample = 8

		_, err := svc.Transcribe(context.Background(), u)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
		gt.Number(t, calls).Equal(0)
	})
}

func TestTranscribe_WithRealSpeechAPI(t *testing.T) {
	if v, ok := os.LookupEnv("TEST_GCP_SPEECH"); !ok || v == "" {
		t.Skip("TEST_GCP_SPEECH is not set")
	}

	ctx := context.Background()
	svc, err := stt.New(ctx)
	gt.NoError(t, err).Required()
	defer svc.Close()

	// Pure silence yields no recognition results.
	_, err = svc.Transcribe(ctx, testUtterance(t))
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrTranscriptionFailed)).True()
}
