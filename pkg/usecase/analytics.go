package usecase

import (
	"context"

	"github.com/chiron-lab/chiron/pkg/domain/interfaces"
	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/m-mizutani/goerr/v2"
)

// Complexity trend labels reported by Insights
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// AnalyticsUseCase owns session lifecycle and the read-only views derived
// from session history. All derivations fold over the history once and
// never mutate it.
type AnalyticsUseCase struct {
	repo  interfaces.Repository
	graph *graph.Graph
}

func NewAnalyticsUseCase(repo interfaces.Repository, g *graph.Graph) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		repo:  repo,
		graph: g,
	}
}

// StartSession creates a fresh session
func (uc *AnalyticsUseCase) StartSession(ctx context.Context) (*model.Session, error) {
	session, err := uc.repo.Sessions().Create(ctx, model.NewSession())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start session")
	}
	return session, nil
}

// Session returns the full session snapshot
func (uc *AnalyticsUseCase) Session(ctx context.Context, id types.SessionID) (*model.Session, error) {
	session, err := uc.repo.Sessions().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(ErrSessionNotFound, "session not found", goerr.V(SessionIDKey, id))
	}
	return session, nil
}

// ListSessions returns all sessions ordered by start time
func (uc *AnalyticsUseCase) ListSessions(ctx context.Context) ([]*model.Session, error) {
	sessions, err := uc.repo.Sessions().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions")
	}
	return sessions, nil
}

// Record appends one completed interaction to its session history
func (uc *AnalyticsUseCase) Record(ctx context.Context, interaction *model.Interaction) error {
	if interaction == nil {
		return goerr.New("interaction is required")
	}
	if err := uc.repo.Sessions().AppendInteraction(ctx, interaction.SessionID, interaction); err != nil {
		return goerr.Wrap(err, "failed to record interaction", goerr.V(SessionIDKey, interaction.SessionID))
	}
	return nil
}

// Summary folds the session history into per-topic counts, interaction
// count and duration
func (uc *AnalyticsUseCase) Summary(ctx context.Context, id types.SessionID) (*model.SessionSummary, error) {
	session, err := uc.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Summarize(), nil
}

// Insights derives the learning-progress view: topics by graph name,
// complexity progression with a first-to-last trend, and rule-based
// recommendations.
func (uc *AnalyticsUseCase) Insights(ctx context.Context, id types.SessionID) (*model.SessionInsights, error) {
	session, err := uc.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	insights := &model.SessionInsights{
		SessionID:       id,
		TopicsDiscussed: uc.topicsDiscussed(session),
		DurationMinutes: sessionDurationMinutes(session),
	}

	for _, in := range session.Interactions {
		if in.Complexity != "" {
			insights.ComplexityProgression = append(insights.ComplexityProgression, in.Complexity)
		}
	}
	insights.Trend = complexityTrend(insights.ComplexityProgression)
	insights.Recommendations = recommend(insights.Trend, insights.DurationMinutes)

	return insights, nil
}

// Export produces the read-only snapshot for external analytics consumers
func (uc *AnalyticsUseCase) Export(ctx context.Context, id types.SessionID) (*model.SessionExport, error) {
	session, err := uc.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Export(), nil
}

// ResetSession deletes a session and its whole history
func (uc *AnalyticsUseCase) ResetSession(ctx context.Context, id types.SessionID) error {
	if err := uc.repo.Sessions().Delete(ctx, id); err != nil {
		return goerr.Wrap(ErrSessionNotFound, "session not found", goerr.V(SessionIDKey, id))
	}
	return nil
}

// topicsDiscussed lists matched entities in first-appearance order,
// resolved to display names through the graph when available
func (uc *AnalyticsUseCase) topicsDiscussed(session *model.Session) []string {
	seen := make(map[types.NodeID]bool)
	var topics []string
	for _, in := range session.Interactions {
		for _, nodeID := range in.MatchedEntities {
			if seen[nodeID] {
				continue
			}
			seen[nodeID] = true
			topics = append(topics, uc.topicName(nodeID))
		}
	}
	return topics
}

func (uc *AnalyticsUseCase) topicName(id types.NodeID) string {
	if uc.graph != nil {
		if node, err := uc.graph.Node(id); err == nil {
			return node.Entity
		}
	}
	return string(id)
}

// sessionDurationMinutes spans first to last interaction
func sessionDurationMinutes(session *model.Session) float64 {
	if len(session.Interactions) == 0 {
		return 0
	}
	first := session.Interactions[0].Timestamp
	last := session.Interactions[len(session.Interactions)-1].Timestamp
	if !last.After(first) {
		return 0
	}
	return last.Sub(first).Minutes()
}

// complexityTrend compares the first and last assessed levels
func complexityTrend(progression []types.ComplexityLevel) string {
	if len(progression) < 2 {
		return TrendInsufficientData
	}
	first := progression[0].Rank()
	last := progression[len(progression)-1].Rank()
	switch {
	case last > first:
		return TrendIncreasing
	case last < first:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func recommend(trend string, durationMinutes float64) []string {
	var recs []string
	if durationMinutes > 60 {
		recs = append(recs, "Consider taking a short break to maintain focus.")
	}
	switch trend {
	case TrendIncreasing:
		recs = append(recs, "Great progress! You're tackling more complex topics.")
	case TrendDecreasing:
		recs = append(recs, "Consider revisiting foundational concepts to strengthen your understanding.")
	}
	return recs
}
