package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// KnowledgeNode represents one educational entity in the knowledge graph.
// Nodes are immutable after the graph is built; the JSON tags define the
// knowledge base file format loaded at startup.
type KnowledgeNode struct {
	ID          types.NodeID        `json:"id"`
	Entity      string              `json:"entity"`
	Type        string              `json:"type"`
	Summary     string              `json:"summary"`
	Description string              `json:"description"`
	Properties  map[string][]string `json:"properties,omitempty"`
	Aliases     []string            `json:"aliases,omitempty"`

	// Relationships is the adjacency list of directed edges from this node
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Relationship is a directed, typed edge stored on its source node
type Relationship struct {
	TargetID    types.NodeID       `json:"target_id"`
	Type        types.RelationType `json:"relation_type"`
	Description string             `json:"description,omitempty"`
}

// Validate checks structural validity of a single node. Cross-node checks
// (duplicate IDs, dangling relationship targets) belong to the graph builder.
func (n *KnowledgeNode) Validate() error {
	if err := n.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid node ID")
	}
	if n.Entity == "" {
		return goerr.New("entity name is required", goerr.V("id", n.ID))
	}
	for _, rel := range n.Relationships {
		if rel.TargetID == "" {
			return goerr.New("relationship target ID is required", goerr.V("source", n.ID))
		}
		if rel.Type == "" {
			return goerr.New("relationship type is required",
				goerr.V("source", n.ID), goerr.V("target", rel.TargetID))
		}
	}
	return nil
}

// MatchNames returns the lowercased names this node can be matched against:
// the entity name, explicit aliases, and the entity name tokens.
func (n *KnowledgeNode) MatchNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, len(n.Aliases)+2)

	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		names = append(names, s)
	}

	add(n.Entity)
	for _, a := range n.Aliases {
		add(a)
	}
	for _, tok := range strings.Fields(n.Entity) {
		add(tok)
	}
	return names
}

// Clone returns a deep copy so callers can never mutate graph-owned state
func (n *KnowledgeNode) Clone() *KnowledgeNode {
	if n == nil {
		return nil
	}
	clone := *n
	if n.Properties != nil {
		clone.Properties = make(map[string][]string, len(n.Properties))
		for k, v := range n.Properties {
			vals := make([]string, len(v))
			copy(vals, v)
			clone.Properties[k] = vals
		}
	}
	if n.Aliases != nil {
		clone.Aliases = make([]string, len(n.Aliases))
		copy(clone.Aliases, n.Aliases)
	}
	if n.Relationships != nil {
		clone.Relationships = make([]Relationship, len(n.Relationships))
		copy(clone.Relationships, n.Relationships)
	}
	return &clone
}

// EntityMatch is a grounded entity found in a query text. Produced per query,
// never persisted.
type EntityMatch struct {
	NodeID     types.NodeID `json:"node_id"`
	Span       string       `json:"span"`
	Offset     int          `json:"offset"`
	Confidence float64      `json:"confidence"`
}

// Validate checks the confidence bound
func (m *EntityMatch) Validate() error {
	if m.NodeID == "" {
		return goerr.New("match node ID is required")
	}
	if m.Confidence < 0.0 || m.Confidence > 1.0 {
		return goerr.New("match confidence out of range",
			goerr.V("node_id", m.NodeID), goerr.V("confidence", m.Confidence))
	}
	return nil
}

// GraphStats summarizes a loaded knowledge graph
type GraphStats struct {
	TotalNodes         int            `json:"total_nodes"`
	TotalRelationships int            `json:"total_relationships"`
	NodeTypes          map[string]int `json:"node_types"`
}
