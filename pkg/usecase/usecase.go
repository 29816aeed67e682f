package usecase

import (
	"github.com/chiron-lab/chiron/pkg/domain/interfaces"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/service/linker"
)

// Context bounds keep the grounding block handed to the generator from
// growing with the knowledge base.
const (
	DefaultHistoryLimit    = 5
	DefaultMaxContextNodes = 6
	DefaultMaxContextChars = 2000
)

type UseCases struct {
	repo            interfaces.Repository
	graph           *graph.Graph
	linker          *linker.Linker
	transcriber     interfaces.Transcriber
	generator       interfaces.Generator
	synthesizer     interfaces.Synthesizer
	audioStore      interfaces.AudioStore
	historyLimit    int
	maxContextNodes int
	maxContextChars int

	Chat      *ChatUseCase
	Analytics *AnalyticsUseCase
}

type Option func(*UseCases)

// WithGraph attaches the loaded knowledge graph. Without it the pipeline
// still answers, but with no entity matches and no grounding context.
func WithGraph(g *graph.Graph) Option {
	return func(uc *UseCases) {
		uc.graph = g
	}
}

func WithTranscriber(t interfaces.Transcriber) Option {
	return func(uc *UseCases) {
		uc.transcriber = t
	}
}

func WithGenerator(g interfaces.Generator) Option {
	return func(uc *UseCases) {
		uc.generator = g
	}
}

func WithSynthesizer(s interfaces.Synthesizer) Option {
	return func(uc *UseCases) {
		uc.synthesizer = s
	}
}

func WithAudioStore(s interfaces.AudioStore) Option {
	return func(uc *UseCases) {
		uc.audioStore = s
	}
}

// WithHistoryLimit bounds how many past interactions the generator prompt
// carries. Values below 1 are ignored.
func WithHistoryLimit(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.historyLimit = n
		}
	}
}

func WithMaxContextNodes(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.maxContextNodes = n
		}
	}
}

func WithMaxContextChars(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.maxContextChars = n
		}
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:            repo,
		historyLimit:    DefaultHistoryLimit,
		maxContextNodes: DefaultMaxContextNodes,
		maxContextChars: DefaultMaxContextChars,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.graph != nil {
		uc.linker = linker.New(uc.graph)
	}

	uc.Analytics = NewAnalyticsUseCase(repo, uc.graph)
	uc.Chat = newChatUseCase(uc)

	return uc
}
