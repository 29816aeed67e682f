package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chiron-lab/chiron/pkg/domain/interfaces"
	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/repository/memory"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// mockTranscriber is a mock implementation of interfaces.Transcriber
type mockTranscriber struct {
	text   string
	err    error
	calls  int
	onCall func()
}

func (m *mockTranscriber) Transcribe(context.Context, *model.Utterance) (string, error) {
	m.calls++
	if m.onCall != nil {
		m.onCall()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// mockGenerator is a mock implementation of interfaces.Generator
type mockGenerator struct {
	answer    *model.Answer
	err       error
	calls     int
	lastInput *model.TutorInput
}

func (m *mockGenerator) Generate(_ context.Context, input *model.TutorInput) (*model.Answer, error) {
	m.calls++
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// mockSynthesizer is a mock implementation of interfaces.Synthesizer
type mockSynthesizer struct {
	synthesis *model.Synthesis
	err       error
	calls     int
	lastText  string
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text string) (*model.Synthesis, error) {
	m.calls++
	m.lastText = text
	if m.err != nil {
		return nil, m.err
	}
	return m.synthesis, nil
}

// mockAudioStore is a mock implementation of interfaces.AudioStore
type mockAudioStore struct {
	ref      string
	err      error
	calls    int
	lastName string
	lastData []byte
}

func (m *mockAudioStore) Put(_ context.Context, name string, data []byte) (string, error) {
	m.calls++
	m.lastName = name
	m.lastData = data
	if m.err != nil {
		return "", m.err
	}
	return m.ref, nil
}

func testNodes() []model.KnowledgeNode {
	return []model.KnowledgeNode{
		{
			ID:          "photosynthesis",
			Entity:      "Photosynthesis",
			Type:        "process",
			Summary:     "Photosynthesis converts light energy into chemical energy.",
			Description: "Green plants capture light with chlorophyll and store the energy as glucose.",
			Aliases:     []string{"light reactions"},
			Relationships: []model.Relationship{
				{TargetID: "glucose", Type: "produces"},
				{TargetID: "chloroplast", Type: "occurs_in"},
			},
		},
		{
			ID:      "glucose",
			Entity:  "Glucose",
			Type:    "molecule",
			Summary: "Glucose is a simple sugar used as fuel by cells.",
		},
		{
			ID:      "chloroplast",
			Entity:  "Chloroplast",
			Type:    "organelle",
			Summary: "Chloroplasts are the organelles where photosynthesis happens.",
		},
		{
			ID:      "mitochondria",
			Entity:  "Mitochondria",
			Type:    "organelle",
			Summary: "Mitochondria release energy from glucose.",
		},
	}
}

func newTestUseCases(t *testing.T, opts ...usecase.Option) (*usecase.UseCases, interfaces.Repository, *model.Session) {
	t.Helper()

	repo := memory.New()
	g, err := graph.New(testNodes())
	gt.NoError(t, err).Required()

	uc := usecase.New(repo, append([]usecase.Option{usecase.WithGraph(g)}, opts...)...)

	session, err := uc.Analytics.StartSession(context.Background())
	gt.NoError(t, err).Required()

	return uc, repo, session
}

func testUtterance() *model.Utterance {
	return &model.Utterance{
		Frames:    []model.AudioFrame{{PCM: make([]byte, 960), IsSpeech: true}},
		Format:    model.DefaultAudioFormat(),
		StartedAt: time.Now().UTC(),
		EndReason: types.EndReasonSilence,
	}
}

func TestHandleText(t *testing.T) {
	t.Run("answers with generation and records the interaction", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{
			Text:       "Photosynthesis is how plants turn light into food.",
			Complexity: types.ComplexityIntermediate,
			FollowUps:  []string{"How do plants store glucose?"},
		}}
		uc, repo, session := newTestUseCases(t, usecase.WithGenerator(gen))
		ctx := context.Background()

		interaction, err := uc.Chat.HandleText(ctx, session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.SessionID).Equal(session.ID)
		gt.Value(t, interaction.Query).Equal("what is photosynthesis")
		gt.Value(t, interaction.Response).Equal(gen.answer.Text)
		gt.Value(t, interaction.Complexity).Equal(types.ComplexityIntermediate)
		gt.Array(t, interaction.FollowUps).Length(1)
		gt.Array(t, interaction.MatchedEntities).Length(1)
		gt.Value(t, interaction.MatchedEntities[0]).Equal(types.NodeID("photosynthesis"))

		stored, err := repo.Sessions().Get(ctx, session.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.Interactions).Length(1)
		gt.Value(t, stored.Interactions[0].Query).Equal("what is photosynthesis")
	})

	t.Run("grounds the generator with matched and related nodes", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "ok"}}
		uc, _, session := newTestUseCases(t, usecase.WithGenerator(gen))

		_, err := uc.Chat.HandleText(context.Background(), session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, gen.lastInput).NotNil().Required()
		gt.Value(t, gen.lastInput.Question).Equal("what is photosynthesis")
		gt.String(t, gen.lastInput.Context).Contains("Photosynthesis converts light energy")
		gt.String(t, gen.lastInput.Context).Contains("Green plants capture light")
		gt.String(t, gen.lastInput.Context).Contains("Glucose: Glucose is a simple sugar")
		gt.String(t, gen.lastInput.Context).Contains("Chloroplast:")
	})

	t.Run("context stops at the node bound", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "ok"}}
		uc, _, session := newTestUseCases(t,
			usecase.WithGenerator(gen),
			usecase.WithMaxContextNodes(1),
		)

		_, err := uc.Chat.HandleText(context.Background(), session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.String(t, gen.lastInput.Context).Contains("Photosynthesis")
		gt.Bool(t, strings.Contains(gen.lastInput.Context, "Glucose")).False()
	})

	t.Run("context stops at the char bound", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "ok"}}
		uc, _, session := newTestUseCases(t,
			usecase.WithGenerator(gen),
			usecase.WithMaxContextChars(10),
		)

		_, err := uc.Chat.HandleText(context.Background(), session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, gen.lastInput.Context).Equal("")
	})

	t.Run("passes recent history to the generator", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "ok"}}
		uc, _, session := newTestUseCases(t, usecase.WithGenerator(gen))
		ctx := context.Background()

		for i := 1; i <= 7; i++ {
			in := model.NewInteraction(session.ID, fmt.Sprintf("q%d", i))
			in.Response = fmt.Sprintf("a%d", i)
			gt.NoError(t, uc.Analytics.Record(ctx, in)).Required()
		}

		_, err := uc.Chat.HandleText(ctx, session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Array(t, gen.lastInput.History).Length(5)
		gt.Value(t, gen.lastInput.History[0].Query).Equal("q3")
		gt.Value(t, gen.lastInput.History[4].Query).Equal("q7")
	})

	t.Run("generation failure falls back to the best match summary", func(t *testing.T) {
		gen := &mockGenerator{err: types.ErrGenerationFailed}
		uc, repo, session := newTestUseCases(t, usecase.WithGenerator(gen))
		ctx := context.Background()

		interaction, err := uc.Chat.HandleText(ctx, session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.Response).Equal("Photosynthesis converts light energy into chemical energy.")
		gt.Array(t, interaction.MatchedEntities).Length(1)

		stored, err := repo.Sessions().Get(ctx, session.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.Interactions).Length(1)
	})

	t.Run("generation failure with no match falls back to the apology", func(t *testing.T) {
		gen := &mockGenerator{err: types.ErrGenerationFailed}
		uc, _, session := newTestUseCases(t, usecase.WithGenerator(gen))

		interaction, err := uc.Chat.HandleText(context.Background(), session.ID, "tell me something nice")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.Response).Equal(usecase.ApologyText)
		gt.Array(t, interaction.MatchedEntities).Length(0)
	})

	t.Run("no generator configured still answers from the knowledge base", func(t *testing.T) {
		uc, _, session := newTestUseCases(t)

		interaction, err := uc.Chat.HandleText(context.Background(), session.ID, "explain glucose")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.Response).Equal("Glucose is a simple sugar used as fuel by cells.")
	})

	t.Run("synthesis stores audio and records the reference", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "Plants eat light."}}
		synth := &mockSynthesizer{synthesis: &model.Synthesis{Audio: []byte("RIFFdata"), Format: "wav"}}
		store := &mockAudioStore{ref: "/tmp/audio/answer.wav"}
		uc, _, session := newTestUseCases(t,
			usecase.WithGenerator(gen),
			usecase.WithSynthesizer(synth),
			usecase.WithAudioStore(store),
		)

		interaction, err := uc.Chat.HandleText(context.Background(), session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.AudioRef).Equal("/tmp/audio/answer.wav")
		gt.Value(t, synth.lastText).Equal("Plants eat light.")
		gt.Value(t, store.lastName).Equal(fmt.Sprintf("%s/%s.wav", session.ID, interaction.ID))
		gt.Value(t, store.lastData).Equal([]byte("RIFFdata"))
	})

	t.Run("synthesis failure keeps the text response", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "Plants eat light."}}
		synth := &mockSynthesizer{err: types.ErrSynthesisFailed}
		store := &mockAudioStore{ref: "unused"}
		uc, repo, session := newTestUseCases(t,
			usecase.WithGenerator(gen),
			usecase.WithSynthesizer(synth),
			usecase.WithAudioStore(store),
		)
		ctx := context.Background()

		interaction, err := uc.Chat.HandleText(ctx, session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.Response).Equal("Plants eat light.")
		gt.Value(t, interaction.AudioRef).Equal("")
		gt.Number(t, store.calls).Equal(0)

		stored, err := repo.Sessions().Get(ctx, session.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.Interactions).Length(1)
	})

	t.Run("empty synthesis audio is not stored", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "Plants eat light."}}
		synth := &mockSynthesizer{synthesis: &model.Synthesis{Audio: []byte{}, Format: "wav"}}
		store := &mockAudioStore{ref: "unused"}
		uc, _, session := newTestUseCases(t,
			usecase.WithGenerator(gen),
			usecase.WithSynthesizer(synth),
			usecase.WithAudioStore(store),
		)

		interaction, err := uc.Chat.HandleText(context.Background(), session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.AudioRef).Equal("")
		gt.Number(t, store.calls).Equal(0)
	})

	t.Run("synthesizer without an audio store is skipped", func(t *testing.T) {
		gen := &mockGenerator{answer: &model.Answer{Text: "Plants eat light."}}
		synth := &mockSynthesizer{synthesis: &model.Synthesis{Audio: []byte("RIFFdata"), Format: "wav"}}
		uc, _, session := newTestUseCases(t,
			usecase.WithGenerator(gen),
			usecase.WithSynthesizer(synth),
		)

		interaction, err := uc.Chat.HandleText(context.Background(), session.ID, "what is photosynthesis")
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.AudioRef).Equal("")
		gt.Number(t, synth.calls).Equal(0)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		uc, _, session := newTestUseCases(t)

		_, err := uc.Chat.HandleText(context.Background(), session.ID, "   ")
		gt.Error(t, err)
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		uc, _, _ := newTestUseCases(t)

		_, err := uc.Chat.HandleText(context.Background(), "no-such-session", "hello")
		gt.Error(t, err).Is(usecase.ErrSessionNotFound)
	})

	t.Run("turns on the same session never interleave", func(t *testing.T) {
		var inFlight int32
		var raced atomic.Bool
		gen := &slowGenerator{
			delay: 5 * time.Millisecond,
			enter: func() {
				if atomic.AddInt32(&inFlight, 1) > 1 {
					raced.Store(true)
				}
			},
			leave: func() { atomic.AddInt32(&inFlight, -1) },
		}
		uc, repo, session := newTestUseCases(t, usecase.WithGenerator(gen))
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := uc.Chat.HandleText(ctx, session.ID, fmt.Sprintf("question %d about glucose", n))
				gt.NoError(t, err)
			}(i)
		}
		wg.Wait()

		gt.Bool(t, raced.Load()).False()

		stored, err := repo.Sessions().Get(ctx, session.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.Interactions).Length(5)
	})
}

// signalStore reports Put names on a channel so background stores can be awaited
type signalStore struct {
	ref  string
	puts chan string
}

func (s *signalStore) Put(_ context.Context, name string, _ []byte) (string, error) {
	s.puts <- name
	return s.ref, nil
}

// slowGenerator holds the turn open to surface interleaving
type slowGenerator struct {
	delay time.Duration
	enter func()
	leave func()
}

func (g *slowGenerator) Generate(context.Context, *model.TutorInput) (*model.Answer, error) {
	g.enter()
	defer g.leave()
	time.Sleep(g.delay)
	return &model.Answer{Text: "ok"}, nil
}

func TestHandleTurn(t *testing.T) {
	t.Run("transcribes and answers", func(t *testing.T) {
		tr := &mockTranscriber{text: "what is photosynthesis"}
		gen := &mockGenerator{answer: &model.Answer{Text: "Light becomes sugar."}}
		uc, _, session := newTestUseCases(t,
			usecase.WithTranscriber(tr),
			usecase.WithGenerator(gen),
		)

		interaction, err := uc.Chat.HandleTurn(context.Background(), session.ID, testUtterance())
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.Query).Equal("what is photosynthesis")
		gt.Value(t, interaction.Response).Equal("Light becomes sugar.")
		gt.Number(t, tr.calls).Equal(1)
	})

	t.Run("transcription failure records the retry prompt", func(t *testing.T) {
		tr := &mockTranscriber{err: types.ErrTranscriptionFailed}
		gen := &mockGenerator{answer: &model.Answer{Text: "unused"}}
		uc, repo, session := newTestUseCases(t,
			usecase.WithTranscriber(tr),
			usecase.WithGenerator(gen),
		)
		ctx := context.Background()

		interaction, err := uc.Chat.HandleTurn(ctx, session.ID, testUtterance())
		gt.NoError(t, err).Required()

		gt.Value(t, interaction.Response).Equal(usecase.CouldNotUnderstandText)
		gt.Value(t, interaction.Query).Equal("")
		gt.Array(t, interaction.MatchedEntities).Length(0)
		gt.Number(t, gen.calls).Equal(0)

		stored, err := repo.Sessions().Get(ctx, session.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.Interactions).Length(1)
	})

	t.Run("deadline from the transcriber takes the same path", func(t *testing.T) {
		tr := &mockTranscriber{err: types.ErrDeadlineExceeded}
		uc, _, session := newTestUseCases(t, usecase.WithTranscriber(tr))

		interaction, err := uc.Chat.HandleTurn(context.Background(), session.ID, testUtterance())
		gt.NoError(t, err).Required()
		gt.Value(t, interaction.Response).Equal(usecase.CouldNotUnderstandText)
	})

	t.Run("cancellation during transcription records nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		tr := &mockTranscriber{err: types.ErrDeadlineExceeded, onCall: cancel}
		uc, repo, session := newTestUseCases(t, usecase.WithTranscriber(tr))

		_, err := uc.Chat.HandleTurn(ctx, session.ID, testUtterance())
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, context.Canceled)).True()

		stored, err := repo.Sessions().Get(context.Background(), session.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.Interactions).Length(0)
	})

	t.Run("question audio is stored in the background", func(t *testing.T) {
		tr := &mockTranscriber{text: "what is glucose"}
		store := &signalStore{ref: "stored", puts: make(chan string, 2)}
		uc, _, session := newTestUseCases(t,
			usecase.WithTranscriber(tr),
			usecase.WithAudioStore(store),
		)

		interaction, err := uc.Chat.HandleTurn(context.Background(), session.ID, testUtterance())
		gt.NoError(t, err).Required()

		select {
		case name := <-store.puts:
			gt.Value(t, name).Equal(fmt.Sprintf("%s/%s-question.wav", session.ID, interaction.ID))
		case <-time.After(time.Second):
			t.Fatal("question audio was never stored")
		}
	})

	t.Run("requires a transcriber", func(t *testing.T) {
		uc, _, session := newTestUseCases(t)

		_, err := uc.Chat.HandleTurn(context.Background(), session.ID, testUtterance())
		gt.Error(t, err)
	})

	t.Run("nil utterance rejected", func(t *testing.T) {
		tr := &mockTranscriber{text: "unused"}
		uc, _, session := newTestUseCases(t, usecase.WithTranscriber(tr))

		_, err := uc.Chat.HandleTurn(context.Background(), session.ID, nil)
		gt.Error(t, err)
		gt.Number(t, tr.calls).Equal(0)
	})
}
