package interfaces

import (
	"context"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	Sessions() SessionRepository
	Close() error
}

// SessionRepository defines the interface for session history persistence.
// Interactions are append-only; a session's history is mutated only through
// AppendInteraction under single-writer discipline per session.
type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, session *model.Session) (*model.Session, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, id types.SessionID) (*model.Session, error)

	// List retrieves all sessions
	List(ctx context.Context) ([]*model.Session, error)

	// AppendInteraction appends one interaction to the session history
	AppendInteraction(ctx context.Context, id types.SessionID, interaction *model.Interaction) error

	// Delete removes a session and its history
	Delete(ctx context.Context, id types.SessionID) error
}
