package model

import (
	"time"

	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// Interaction is one completed question/answer turn. Append-only: owned by
// the session history once recorded, never mutated afterwards.
type Interaction struct {
	ID              types.InteractionID   `json:"id" firestore:"id"`
	SessionID       types.SessionID       `json:"session_id" firestore:"session_id"`
	Timestamp       time.Time             `json:"timestamp" firestore:"timestamp"`
	Query           string                `json:"query" firestore:"query"`
	MatchedEntities []types.NodeID        `json:"entities" firestore:"entities"`
	Response        string                `json:"response" firestore:"response"`
	Complexity      types.ComplexityLevel `json:"complexity,omitempty" firestore:"complexity,omitempty"`
	FollowUps       []string              `json:"follow_ups,omitempty" firestore:"follow_ups,omitempty"`

	// AudioRef points at the stored synthesized answer, empty when synthesis
	// was skipped or failed (text-only response)
	AudioRef string `json:"audio_ref,omitempty" firestore:"audio_ref,omitempty"`
}

// NewInteraction constructs a turn record with a fresh ID and timestamp
func NewInteraction(sessionID types.SessionID, query string) *Interaction {
	return &Interaction{
		ID:        types.NewInteractionID(),
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Query:     query,
	}
}

// Clone returns a deep copy of the interaction
func (i *Interaction) Clone() *Interaction {
	if i == nil {
		return nil
	}
	clone := *i
	if i.MatchedEntities != nil {
		clone.MatchedEntities = make([]types.NodeID, len(i.MatchedEntities))
		copy(clone.MatchedEntities, i.MatchedEntities)
	}
	if i.FollowUps != nil {
		clone.FollowUps = make([]string, len(i.FollowUps))
		copy(clone.FollowUps, i.FollowUps)
	}
	return &clone
}
