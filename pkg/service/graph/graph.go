package graph

import (
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// Confidence levels of the entity name matching model. Substring matches
// scale linearly with the length ratio between these bounds.
const (
	confidenceExact        = 1.0
	confidenceAlias        = 0.9
	confidenceSubstringMin = 0.5
	confidenceSubstringMax = 0.9
)

// Search term scores, highest signal first
const (
	scoreEntityName  = 3
	scoreAlias       = 2
	scoreSummary     = 1
	scoreDescription = 1
	scoreProperties  = 1
)

// Graph is the in-memory typed knowledge graph. It is built once and
// immutable afterwards, so it is safe for unlimited concurrent readers.
type Graph struct {
	nodes map[types.NodeID]*model.KnowledgeNode
	order []types.NodeID
}

// Related pairs a reached node with the relationship edge that first
// reached it during traversal.
type Related struct {
	Node  *model.KnowledgeNode
	Edge  model.Relationship
	Depth int
}

// New builds a graph from node records. It fails with a
// types.ErrGraphIntegrity wrap on a duplicated node ID, an invalid node, or
// a relationship referencing an unknown target. No partial graph is returned.
func New(nodes []model.KnowledgeNode) (*Graph, error) {
	g := &Graph{
		nodes: make(map[types.NodeID]*model.KnowledgeNode, len(nodes)),
		order: make([]types.NodeID, 0, len(nodes)),
	}

	for i := range nodes {
		node := nodes[i]
		if err := node.Validate(); err != nil {
			return nil, goerr.Wrap(types.ErrGraphIntegrity, "invalid node record",
				goerr.V("id", node.ID), goerr.V("cause", err.Error()))
		}
		if _, exists := g.nodes[node.ID]; exists {
			return nil, goerr.Wrap(types.ErrGraphIntegrity, "duplicate node ID",
				goerr.V("id", node.ID))
		}
		g.nodes[node.ID] = node.Clone()
		g.order = append(g.order, node.ID)
	}

	// Endpoint check runs after all nodes are indexed so forward references
	// within the load order are legal.
	for _, id := range g.order {
		for _, rel := range g.nodes[id].Relationships {
			if _, ok := g.nodes[rel.TargetID]; !ok {
				return nil, goerr.Wrap(types.ErrGraphIntegrity, "relationship references unknown target",
					goerr.V("source", id), goerr.V("target", rel.TargetID))
			}
		}
	}

	return g, nil
}

// Node returns a copy of the node, or a types.ErrNodeNotFound wrap
func (g *Graph) Node(id types.NodeID) (*model.KnowledgeNode, error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNodeNotFound, "no such node", goerr.V("id", id))
	}
	return node.Clone(), nil
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FindByName matches text case-insensitively against entity names and
// aliases. Exact full-name matches score 1.0, alias matches 0.9, substring
// matches 0.5 + 0.4·(matched length / name length) clamped to [0.5, 0.9].
// The result is ordered by confidence, then longer matched span, then node
// ID. An empty result is not an error.
func (g *Graph) FindByName(text string) []model.EntityMatch {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "" {
		return nil
	}

	var matches []model.EntityMatch
	for _, id := range g.order {
		node := g.nodes[id]
		if m, ok := matchNode(node, query); ok {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if len(matches[i].Span) != len(matches[j].Span) {
			return len(matches[i].Span) > len(matches[j].Span)
		}
		return matches[i].NodeID < matches[j].NodeID
	})

	return matches
}

// matchNode computes the best match of query against one node's names
func matchNode(node *model.KnowledgeNode, query string) (model.EntityMatch, bool) {
	entity := strings.ToLower(node.Entity)
	best := model.EntityMatch{NodeID: node.ID, Confidence: -1}

	consider := func(span string, confidence float64) {
		if confidence > best.Confidence ||
			(confidence == best.Confidence && len(span) > len(best.Span)) {
			best.Span = span
			best.Confidence = confidence
			best.Offset = strings.Index(query, span)
			if best.Offset < 0 {
				best.Offset = 0
			}
		}
	}

	if query == entity {
		consider(query, confidenceExact)
	}

	// Aliases and entity name tokens count as exact alias matches
	for _, name := range node.MatchNames() {
		if name != entity && query == name {
			consider(query, confidenceAlias)
		}
	}

	// Substring in either direction against every matchable name
	for _, name := range node.MatchNames() {
		var span string
		switch {
		case strings.Contains(name, query):
			span = query
		case strings.Contains(query, name):
			span = name
		default:
			continue
		}
		ratio := float64(len(span)) / float64(len(name))
		confidence := confidenceSubstringMin + 0.4*ratio
		if confidence > confidenceSubstringMax {
			confidence = confidenceSubstringMax
		}
		if confidence < confidenceSubstringMin {
			confidence = confidenceSubstringMin
		}
		consider(span, confidence)
	}

	if best.Confidence < 0 {
		return model.EntityMatch{}, false
	}
	return best, true
}

// Search ranks nodes against a free-text query: per query term, an entity
// name hit scores 3, alias 2, summary 1, description 1, properties 1.
// Results are stable-sorted by score then node ID and capped at topK.
func (g *Graph) Search(query string, topK int) []*model.KnowledgeNode {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || topK <= 0 {
		return nil
	}

	type scored struct {
		id    types.NodeID
		score int
	}
	var ranked []scored

	for _, id := range g.order {
		node := g.nodes[id]
		entity := strings.ToLower(node.Entity)
		summary := strings.ToLower(node.Summary)
		description := strings.ToLower(node.Description)

		score := 0
		for _, term := range terms {
			switch {
			case strings.Contains(entity, term):
				score += scoreEntityName
			case containsTerm(node.Aliases, term):
				score += scoreAlias
			default:
				if strings.Contains(summary, term) {
					score += scoreSummary
				}
				if strings.Contains(description, term) {
					score += scoreDescription
				}
				if propertiesContain(node.Properties, term) {
					score += scoreProperties
				}
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{id: id, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]*model.KnowledgeNode, len(ranked))
	for i, r := range ranked {
		results[i] = g.nodes[r.id].Clone()
	}
	return results
}

func containsTerm(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func propertiesContain(props map[string][]string, term string) bool {
	for _, values := range props {
		if containsTerm(values, term) {
			return true
		}
	}
	return false
}

// RelatedTo walks the graph breadth-first from id up to maxDepth hops. A
// visited set guarantees no node appears twice regardless of how many paths
// reach it, which also makes cycles safe. The origin node is not included.
func (g *Graph) RelatedTo(id types.NodeID, maxDepth int) ([]Related, error) {
	origin, ok := g.nodes[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNodeNotFound, "no such node", goerr.V("id", id))
	}
	if maxDepth <= 0 {
		return nil, nil
	}

	type queued struct {
		id    types.NodeID
		depth int
	}

	visited := map[types.NodeID]bool{origin.ID: true}
	queue := []queued{{id: origin.ID, depth: 0}}
	var results []Related

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == maxDepth {
			continue
		}

		for _, rel := range g.nodes[cur.id].Relationships {
			if visited[rel.TargetID] {
				continue
			}
			visited[rel.TargetID] = true
			results = append(results, Related{
				Node:  g.nodes[rel.TargetID].Clone(),
				Edge:  rel,
				Depth: cur.depth + 1,
			})
			queue = append(queue, queued{id: rel.TargetID, depth: cur.depth + 1})
		}
	}

	return results, nil
}

// Stats summarizes the loaded graph
func (g *Graph) Stats() model.GraphStats {
	stats := model.GraphStats{
		TotalNodes: len(g.nodes),
		NodeTypes:  make(map[string]int),
	}
	for _, id := range g.order {
		node := g.nodes[id]
		if node.Type != "" {
			stats.NodeTypes[node.Type]++
		}
		stats.TotalRelationships += len(node.Relationships)
	}
	return stats
}
