package tutor

import (
	"context"

	"github.com/chiron-lab/chiron/pkg/domain/model"
)

// Service generates tutoring answers and conversation summaries
type Service interface {
	// Generate answers one student question from the prepared input
	Generate(ctx context.Context, input *model.TutorInput) (*model.Answer, error)

	// Summarize produces learning insights for a whole session transcript
	Summarize(ctx context.Context, session *model.Session) (string, error)
}

// DefaultHistoryLimit is how many past interactions the prompt includes
const DefaultHistoryLimit = 5

// emptySessionSummary is returned without calling the model
const emptySessionSummary = "No conversation to summarize."
