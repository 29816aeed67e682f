package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chiron-lab/chiron/pkg/domain/interfaces"
	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/service/linker"
	"github.com/chiron-lab/chiron/pkg/utils/async"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/semaphore"
)

// User-visible fallback texts. The pipeline guarantees a response on every
// completed turn, whatever collaborator failed.
const (
	// CouldNotUnderstandText is recorded when transcription fails
	CouldNotUnderstandText = "I'm sorry, I could not understand the audio. Please try again."

	// ApologyText is the generation fallback when no entity matched
	ApologyText = "I'm sorry, I encountered an error while processing your request. Please try again."
)

// ChatUseCase runs one question/answer turn end to end: transcription,
// entity linking, grounded generation, optional synthesis, recording.
type ChatUseCase struct {
	analytics       *AnalyticsUseCase
	graph           *graph.Graph
	linker          *linker.Linker
	transcriber     interfaces.Transcriber
	generator       interfaces.Generator
	synthesizer     interfaces.Synthesizer
	audioStore      interfaces.AudioStore
	historyLimit    int
	maxContextNodes int
	maxContextChars int

	// turns serializes HandleTurn/HandleText per session so interaction
	// order stays deterministic. Independent sessions run concurrently.
	mu    sync.Mutex
	turns map[types.SessionID]*semaphore.Weighted
}

func newChatUseCase(uc *UseCases) *ChatUseCase {
	return &ChatUseCase{
		analytics:       uc.Analytics,
		graph:           uc.graph,
		linker:          uc.linker,
		transcriber:     uc.transcriber,
		generator:       uc.generator,
		synthesizer:     uc.synthesizer,
		audioStore:      uc.audioStore,
		historyLimit:    uc.historyLimit,
		maxContextNodes: uc.maxContextNodes,
		maxContextChars: uc.maxContextChars,
		turns:           make(map[types.SessionID]*semaphore.Weighted),
	}
}

// HandleTurn processes one captured utterance. Transcription failure is not
// an error to the caller: the turn completes with the retry prompt recorded.
// A canceled context aborts the turn with nothing recorded.
func (uc *ChatUseCase) HandleTurn(ctx context.Context, sessionID types.SessionID, utterance *model.Utterance) (*model.Interaction, error) {
	if uc.transcriber == nil {
		return nil, goerr.New("no transcriber configured")
	}
	if utterance == nil {
		return nil, goerr.New("utterance is required")
	}

	release, err := uc.acquireTurn(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	text, err := uc.transcriber.Transcribe(ctx, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return nil, goerr.Wrap(ctx.Err(), "turn canceled during transcription", goerr.V(SessionIDKey, sessionID))
		}
		logging.From(ctx).Warn("transcription failed, answering with the retry prompt",
			"session_id", sessionID,
			"error", err,
		)
		interaction := model.NewInteraction(sessionID, "")
		interaction.Response = CouldNotUnderstandText
		if err := uc.analytics.Record(ctx, interaction); err != nil {
			return nil, err
		}
		uc.storeUtterance(ctx, interaction, utterance)
		return interaction, nil
	}

	interaction, err := uc.completeTurn(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}
	uc.storeUtterance(ctx, interaction, utterance)
	return interaction, nil
}

// HandleText processes a typed question. Same pipeline as HandleTurn minus
// transcription, under the same per-session ordering.
func (uc *ChatUseCase) HandleText(ctx context.Context, sessionID types.SessionID, text string) (*model.Interaction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.New("message text is required")
	}

	release, err := uc.acquireTurn(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	return uc.completeTurn(ctx, sessionID, text)
}

// acquireTurn blocks until the session's previous turn finished or ctx is
// done. The semaphore keeps interaction ordering total per session.
func (uc *ChatUseCase) acquireTurn(ctx context.Context, sessionID types.SessionID) (func(), error) {
	uc.mu.Lock()
	sem, ok := uc.turns[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		uc.turns[sessionID] = sem
	}
	uc.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, goerr.Wrap(err, "waiting for previous turn was canceled", goerr.V(SessionIDKey, sessionID))
	}
	return func() { sem.Release(1) }, nil
}

func (uc *ChatUseCase) completeTurn(ctx context.Context, sessionID types.SessionID, queryText string) (*model.Interaction, error) {
	session, err := uc.analytics.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var matches []model.EntityMatch
	if uc.linker != nil {
		matches = uc.linker.Link(queryText)
	}

	interaction := model.NewInteraction(sessionID, queryText)
	interaction.MatchedEntities = matchedIDs(matches)

	answer := uc.generate(ctx, queryText, matches, session.Interactions)
	if ctx.Err() != nil {
		return nil, goerr.Wrap(ctx.Err(), "turn canceled", goerr.V(SessionIDKey, sessionID))
	}
	interaction.Response = answer.Text
	interaction.Complexity = answer.Complexity
	interaction.FollowUps = answer.FollowUps

	uc.synthesize(ctx, interaction)

	if err := uc.analytics.Record(ctx, interaction); err != nil {
		return nil, err
	}
	return interaction, nil
}

// generate asks the configured generator and falls back to the knowledge
// base on any failure. It always returns an answer with text.
func (uc *ChatUseCase) generate(ctx context.Context, queryText string, matches []model.EntityMatch, history []model.Interaction) *model.Answer {
	if uc.generator != nil {
		input := &model.TutorInput{
			Question: queryText,
			Context:  uc.buildContext(matches),
			History:  lastN(history, uc.historyLimit),
		}
		answer, err := uc.generator.Generate(ctx, input)
		if err == nil {
			return answer
		}
		logging.From(ctx).Warn("generation failed, falling back to the knowledge base",
			"error", err,
		)
	}

	return uc.fallbackAnswer(matches)
}

// fallbackAnswer returns the best match's summary, or the apology when the
// query matched nothing.
func (uc *ChatUseCase) fallbackAnswer(matches []model.EntityMatch) *model.Answer {
	if uc.graph != nil && len(matches) > 0 {
		if node, err := uc.graph.Node(matches[0].NodeID); err == nil && node.Summary != "" {
			return &model.Answer{Text: node.Summary}
		}
	}
	return &model.Answer{Text: ApologyText}
}

// buildContext assembles the grounding block: each match's summary and
// description followed by its one-hop neighbors' summaries, whole lines
// only, bounded by maxContextNodes and maxContextChars.
func (uc *ChatUseCase) buildContext(matches []model.EntityMatch) string {
	if uc.graph == nil || len(matches) == 0 {
		return ""
	}

	var lines []string
	total := 0
	seen := make(map[types.NodeID]bool)

	add := func(line string) bool {
		if len(lines) >= uc.maxContextNodes || total+len(line) > uc.maxContextChars {
			return false
		}
		lines = append(lines, line)
		total += len(line) + 1
		return true
	}

	for _, m := range matches {
		node, err := uc.graph.Node(m.NodeID)
		if err != nil || seen[node.ID] {
			continue
		}
		seen[node.ID] = true
		if !add(describeNode(node, true)) {
			break
		}

		related, err := uc.graph.RelatedTo(node.ID, 1)
		if err != nil {
			continue
		}
		for _, rel := range related {
			if seen[rel.Node.ID] {
				continue
			}
			seen[rel.Node.ID] = true
			if !add(describeNode(rel.Node, false)) {
				break
			}
		}
	}

	return strings.Join(lines, "\n")
}

// synthesize voices the response and records where the audio landed.
// Best-effort: any failure leaves the interaction text-only.
func (uc *ChatUseCase) synthesize(ctx context.Context, interaction *model.Interaction) {
	if uc.synthesizer == nil || uc.audioStore == nil || interaction.Response == "" {
		return
	}

	synthesis, err := uc.synthesizer.Synthesize(ctx, interaction.Response)
	if err != nil {
		logging.From(ctx).Warn("synthesis failed, returning text only",
			"session_id", interaction.SessionID,
			"error", err,
		)
		return
	}
	if len(synthesis.Audio) == 0 {
		return
	}

	name := fmt.Sprintf("%s/%s.%s", interaction.SessionID, interaction.ID, synthesis.Format)
	ref, err := uc.audioStore.Put(ctx, name, synthesis.Audio)
	if err != nil {
		logging.From(ctx).Warn("failed to store synthesized audio",
			"session_id", interaction.SessionID,
			"error", err,
		)
		return
	}
	interaction.AudioRef = ref
}

// storeUtterance keeps the captured question audio next to the answer audio.
// The turn never waits on it; a failed store only logs.
func (uc *ChatUseCase) storeUtterance(ctx context.Context, interaction *model.Interaction, utterance *model.Utterance) {
	if uc.audioStore == nil {
		return
	}

	wav := utterance.Format.EncodeWAV(utterance.PCM())
	name := fmt.Sprintf("%s/%s-question.wav", interaction.SessionID, interaction.ID)
	async.Dispatch(ctx, func(ctx context.Context) error {
		if _, err := uc.audioStore.Put(ctx, name, wav); err != nil {
			return goerr.Wrap(err, "failed to store question audio",
				goerr.V(SessionIDKey, interaction.SessionID))
		}
		return nil
	})
}

func describeNode(node *model.KnowledgeNode, full bool) string {
	text := node.Summary
	if full && node.Description != "" {
		if text != "" {
			text += " "
		}
		text += node.Description
	}
	return fmt.Sprintf("%s: %s", node.Entity, text)
}

func matchedIDs(matches []model.EntityMatch) []types.NodeID {
	if len(matches) == 0 {
		return nil
	}
	ids := make([]types.NodeID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.NodeID)
	}
	return ids
}

func lastN(history []model.Interaction, n int) []model.Interaction {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
