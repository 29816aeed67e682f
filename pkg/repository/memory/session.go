package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]*model.Session
}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		sessions: make(map[types.SessionID]*model.Session),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	if session == nil {
		return nil, goerr.New("session is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := session.Clone()
	if created.ID == "" {
		created.ID = types.NewSessionID()
	}
	if created.StartedAt.IsZero() {
		created.StartedAt = time.Now().UTC()
	}

	r.sessions[created.ID] = created
	return created.Clone(), nil
}

func (r *sessionRepository) Get(ctx context.Context, id types.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
	}

	return session.Clone(), nil
}

func (r *sessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session.Clone())
	}

	// Sort by StartedAt ascending
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	return sessions, nil
}

func (r *sessionRepository) AppendInteraction(ctx context.Context, id types.SessionID, interaction *model.Interaction) error {
	if interaction == nil {
		return goerr.New("interaction is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
	}

	appended := interaction.Clone()
	appended.SessionID = id
	session.Interactions = append(session.Interactions, *appended)
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id types.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
	}

	delete(r.sessions, id)
	return nil
}
