package linker

import (
	"sort"
	"strings"
	"unicode"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/graph"
)

// stopwords are ignored when building candidate spans. Question scaffolding
// words never name an entity on their own.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"do": true, "does": true, "did": true, "can": true, "could": true,
	"will": true, "would": true, "should": true,
	"what": true, "whats": true, "when": true, "where": true, "which": true,
	"who": true, "why": true, "how": true,
	"i": true, "you": true, "me": true, "my": true, "it": true, "its": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"and": true, "or": true, "about": true, "between": true,
	"tell": true, "explain": true, "describe": true, "please": true,
}

// Linker resolves entity mentions in free text against the knowledge graph.
// It is a pure function of (text, graph) and safe for concurrent use.
type Linker struct {
	graph *graph.Graph
}

// New creates a Linker over a built graph
func New(g *graph.Graph) *Linker {
	return &Linker{graph: g}
}

// token is a content word with its byte offset in the lowered input text
type token struct {
	word   string
	offset int
}

// Link extracts entity matches from an utterance. Candidate spans are the
// unigrams and bigrams of content tokens (stop-words removed); each candidate
// is resolved through the graph's name index. Matches on the same node are
// deduplicated keeping the highest confidence, then sorted by confidence
// descending and first-occurrence offset. An empty result is valid, never an
// error.
func (l *Linker) Link(text string) []model.EntityMatch {
	lowered := strings.ToLower(text)
	tokens := tokenize(lowered)

	content := tokens[:0:0]
	for _, tok := range tokens {
		// "what's" folds to "whats" for the stop-word check
		if stopwords[tok.word] || stopwords[strings.ReplaceAll(tok.word, "'", "")] {
			continue
		}
		content = append(content, tok)
	}
	if len(content) == 0 {
		return nil
	}

	best := make(map[types.NodeID]model.EntityMatch)
	consider := func(candidate string, offset int) {
		for _, m := range l.graph.FindByName(candidate) {
			// Rebase the span offset from the candidate to the full text
			if i := strings.Index(candidate, m.Span); i >= 0 {
				m.Offset = offset + i
			} else {
				m.Offset = offset
			}

			cur, ok := best[m.NodeID]
			if !ok || m.Confidence > cur.Confidence ||
				(m.Confidence == cur.Confidence && m.Offset < cur.Offset) {
				best[m.NodeID] = m
			}
		}
	}

	for i, tok := range content {
		consider(tok.word, tok.offset)
		if i+1 < len(content) {
			consider(tok.word+" "+content[i+1].word, tok.offset)
		}
	}

	matches := make([]model.EntityMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].Offset != matches[j].Offset {
			return matches[i].Offset < matches[j].Offset
		}
		return matches[i].NodeID < matches[j].NodeID
	})
	return matches
}

// tokenize splits lowered text into words, recording the byte offset of each.
// Letters, digits, and in-word apostrophes or hyphens stay; everything else
// separates.
func tokenize(lowered string) []token {
	var tokens []token
	var sb strings.Builder
	start := -1

	flush := func() {
		if sb.Len() == 0 {
			return
		}
		raw := sb.String()
		word := strings.Trim(raw, "'-")
		if word != "" {
			lead := strings.Index(raw, word)
			tokens = append(tokens, token{word: word, offset: start + lead})
		}
		sb.Reset()
		start = -1
	}

	for i, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-' {
			if sb.Len() == 0 {
				start = i
			}
			sb.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}
