package model

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// TutorInput carries everything the generation collaborator needs to answer
// one question: the question itself, a grounding context block assembled from
// the knowledge graph, and the recent conversation history.
type TutorInput struct {
	Question string
	Context  string
	History  []Interaction
}

// Answer is the structured tutoring response. The JSON tags define the
// response schema requested from the model.
type Answer struct {
	Text        string                `json:"answer"`
	Complexity  types.ComplexityLevel `json:"complexity_level"`
	KeyConcepts []string              `json:"key_concepts,omitempty"`
	FollowUps   []string              `json:"follow_up_questions,omitempty"`
}

// Validate normalizes a model-produced answer: answer text is mandatory,
// unknown complexity levels collapse to intermediate, follow-ups are capped
// at three.
func (a *Answer) Validate() error {
	if a.Text == "" {
		return goerr.New("answer text is required")
	}
	a.Complexity = a.Complexity.Normalize()
	if len(a.FollowUps) > 3 {
		a.FollowUps = a.FollowUps[:3]
	}
	return nil
}
