package model_test

import (
	"testing"
	"time"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestSession_Summarize(t *testing.T) {
	t.Run("counts topics across interactions", func(t *testing.T) {
		started := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
		s := &model.Session{
			ID:        "session-1",
			StartedAt: started,
			Interactions: []model.Interaction{
				{Timestamp: started.Add(10 * time.Second), MatchedEntities: []types.NodeID{"photosynthesis"}},
				{Timestamp: started.Add(40 * time.Second), MatchedEntities: []types.NodeID{"photosynthesis"}},
				{Timestamp: started.Add(90 * time.Second), MatchedEntities: []types.NodeID{"chlorophyll"}},
			},
		}

		summary := s.Summarize()
		gt.N(t, summary.InteractionCount).Equal(3)
		gt.N(t, summary.TopicCounts["photosynthesis"]).Equal(2)
		gt.N(t, summary.TopicCounts["chlorophyll"]).Equal(1)
		gt.N(t, summary.DurationSeconds).Equal(90.0)
	})

	t.Run("empty session", func(t *testing.T) {
		s := model.NewSession()
		summary := s.Summarize()
		gt.N(t, summary.InteractionCount).Equal(0)
		gt.N(t, len(summary.TopicCounts)).Equal(0)
		gt.N(t, summary.DurationSeconds).Equal(0.0)
	})
}

func TestSession_Clone(t *testing.T) {
	s := &model.Session{
		ID:        "session-1",
		StartedAt: time.Now().UTC(),
		Interactions: []model.Interaction{
			{ID: "i1", Query: "what is dna", MatchedEntities: []types.NodeID{"dna"}},
		},
	}

	clone := s.Clone()
	clone.Interactions[0].Query = "changed"
	clone.Interactions[0].MatchedEntities[0] = "changed"
	clone.Interactions = append(clone.Interactions, model.Interaction{ID: "i2"})

	gt.S(t, s.Interactions[0].Query).Equal("what is dna")
	gt.V(t, s.Interactions[0].MatchedEntities[0]).Equal(types.NodeID("dna"))
	gt.A(t, s.Interactions).Length(1)
}

func TestNewInteraction(t *testing.T) {
	in := model.NewInteraction("session-1", "what is photosynthesis")
	gt.V(t, in.SessionID).Equal(types.SessionID("session-1"))
	gt.S(t, in.Query).Equal("what is photosynthesis")
	gt.B(t, in.ID != "").True()
	gt.B(t, in.Timestamp.IsZero()).False()
}
