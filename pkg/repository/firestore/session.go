package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type sessionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSessionRepository(client *firestore.Client) *sessionRepository {
	return &sessionRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *sessionRepository) sessionsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_sessions"
	}
	return "sessions"
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	if session == nil {
		return nil, goerr.New("session is required")
	}

	created := session.Clone()
	if created.ID == "" {
		created.ID = types.NewSessionID()
	}
	if created.StartedAt.IsZero() {
		created.StartedAt = time.Now().UTC()
	}

	docRef := r.client.Collection(r.sessionsCollection()).Doc(string(created.ID))
	if _, err := docRef.Set(ctx, created); err != nil {
		return nil, goerr.Wrap(err, "failed to create session", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *sessionRepository) Get(ctx context.Context, id types.SessionID) (*model.Session, error) {
	docRef := r.client.Collection(r.sessionsCollection()).Doc(string(id))
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("id", id))
	}

	var session model.Session
	if err := doc.DataTo(&session); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal session", goerr.V("id", id))
	}

	return &session, nil
}

func (r *sessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	// session_id breaks ties between identical start times; the composite
	// index for this ordering is provisioned by the migrate command
	iter := r.client.Collection(r.sessionsCollection()).
		OrderBy("started_at", firestore.Asc).
		OrderBy("session_id", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var sessions []*model.Session
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate sessions")
		}

		var session model.Session
		if err := doc.DataTo(&session); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal session")
		}

		sessions = append(sessions, &session)
	}

	return sessions, nil
}

func (r *sessionRepository) AppendInteraction(ctx context.Context, id types.SessionID, interaction *model.Interaction) error {
	if interaction == nil {
		return goerr.New("interaction is required")
	}

	appended := interaction.Clone()
	appended.SessionID = id

	docRef := r.client.Collection(r.sessionsCollection()).Doc(string(id))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}

		var session model.Session
		if err := doc.DataTo(&session); err != nil {
			return err
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "interactions", Value: append(session.Interactions, *appended)},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to append interaction", goerr.V("id", id))
	}

	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id types.SessionID) error {
	docRef := r.client.Collection(r.sessionsCollection()).Doc(string(id))

	_, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get session", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete session", goerr.V("id", id))
	}

	return nil
}
