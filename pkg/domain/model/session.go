package model

import (
	"time"

	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// Session is the ordered interaction history of one user over one continuous
// usage period. History is append-only: no reordering, no deletion.
type Session struct {
	ID           types.SessionID `json:"session_id" firestore:"session_id"`
	StartedAt    time.Time       `json:"started_at" firestore:"started_at"`
	Interactions []Interaction   `json:"interactions" firestore:"interactions"`
}

// NewSession creates a session starting now
func NewSession() *Session {
	return &Session{
		ID:        types.NewSessionID(),
		StartedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy so repository callers never share history slices
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Interactions != nil {
		clone.Interactions = make([]Interaction, len(s.Interactions))
		for i := range s.Interactions {
			clone.Interactions[i] = *s.Interactions[i].Clone()
		}
	}
	return &clone
}

// Summarize folds over the history once and derives the session aggregates
func (s *Session) Summarize() *SessionSummary {
	summary := &SessionSummary{
		SessionID:        s.ID,
		TopicCounts:      make(map[types.NodeID]int),
		InteractionCount: len(s.Interactions),
	}

	var last time.Time
	for _, in := range s.Interactions {
		for _, nodeID := range in.MatchedEntities {
			summary.TopicCounts[nodeID]++
		}
		if in.Timestamp.After(last) {
			last = in.Timestamp
		}
	}
	if !last.IsZero() && last.After(s.StartedAt) {
		summary.DurationSeconds = last.Sub(s.StartedAt).Seconds()
	}
	return summary
}

// SessionSummary holds the per-session aggregates
type SessionSummary struct {
	SessionID        types.SessionID      `json:"session_id"`
	TopicCounts      map[types.NodeID]int `json:"topic_counts"`
	InteractionCount int                  `json:"interaction_count"`
	DurationSeconds  float64              `json:"session_duration_seconds"`
}

// SessionInsights is a richer learning-progress view derived from a session
type SessionInsights struct {
	SessionID             types.SessionID         `json:"session_id"`
	TopicsDiscussed       []string                `json:"topics_discussed"`
	ComplexityProgression []types.ComplexityLevel `json:"complexity_progression"`
	Trend                 string                  `json:"trend"` // increasing, decreasing, stable or insufficient_data
	DurationMinutes       float64                 `json:"session_duration_minutes"`
	Recommendations       []string                `json:"recommendations"`
}

// SessionExport is the read-only snapshot handed to analytics consumers
type SessionExport struct {
	SessionID    types.SessionID     `json:"session_id"`
	Interactions []InteractionExport `json:"interactions"`
}

// InteractionExport is one history entry in an export snapshot
type InteractionExport struct {
	Timestamp time.Time      `json:"timestamp"`
	Query     string         `json:"query"`
	Entities  []types.NodeID `json:"entities"`
	Response  string         `json:"response"`
}

// Export produces the read-only snapshot of the session history
func (s *Session) Export() *SessionExport {
	export := &SessionExport{
		SessionID:    s.ID,
		Interactions: make([]InteractionExport, 0, len(s.Interactions)),
	}
	for _, in := range s.Interactions {
		entities := make([]types.NodeID, len(in.MatchedEntities))
		copy(entities, in.MatchedEntities)
		export.Interactions = append(export.Interactions, InteractionExport{
			Timestamp: in.Timestamp,
			Query:     in.Query,
			Entities:  entities,
			Response:  in.Response,
		})
	}
	return export
}
