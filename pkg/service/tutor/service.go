package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
)

// client implements Service interface
type client struct {
	llmClient    gollem.LLMClient
	historyLimit int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithHistoryLimit bounds how many past interactions enter the prompt
func WithHistoryLimit(n int) Option {
	return func(c *client) {
		if n >= 0 {
			c.historyLimit = n
		}
	}
}

// New creates a tutoring service backed by the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:    llmClient,
		historyLimit: DefaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Generate answers one question with a difficulty-adjusted, grounded response
func (c *client) Generate(ctx context.Context, input *model.TutorInput) (*model.Answer, error) {
	if input == nil || input.Question == "" {
		return nil, goerr.New("question is required")
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(c.buildResponseSchema()),
		gollem.WithSessionSystemPrompt(buildSystemPrompt()),
	)
	if err != nil {
		return nil, wrapGenerationErr(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(c.buildUserPrompt(input)))
	if err != nil {
		return nil, wrapGenerationErr(err, "failed to generate answer")
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.Wrap(types.ErrGenerationFailed, "empty response from LLM")
	}

	var answer model.Answer
	if err := json.Unmarshal([]byte(resp.Texts[0]), &answer); err != nil {
		return nil, goerr.Wrap(types.ErrGenerationFailed, "failed to parse LLM response",
			goerr.V("response", resp.Texts[0]), goerr.V("cause", err.Error()))
	}
	if err := answer.Validate(); err != nil {
		return nil, goerr.Wrap(types.ErrGenerationFailed, "invalid answer from LLM",
			goerr.V("cause", err.Error()))
	}

	return &answer, nil
}

// Summarize produces free-text learning insights for a session transcript
func (c *client) Summarize(ctx context.Context, session *model.Session) (string, error) {
	if session == nil || len(session.Interactions) == 0 {
		return emptySessionSummary, nil
	}

	llmSession, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionSystemPrompt(buildSystemPrompt()),
	)
	if err != nil {
		return "", wrapGenerationErr(err, "failed to create LLM session")
	}

	resp, err := llmSession.GenerateContent(ctx, gollem.Text(buildSummaryPrompt(session)))
	if err != nil {
		return "", wrapGenerationErr(err, "failed to summarize conversation")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.Wrap(types.ErrGenerationFailed, "empty summary from LLM")
	}

	return resp.Texts[0], nil
}

// wrapGenerationErr keeps the timeout case distinguishable in the taxonomy
func wrapGenerationErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerr.Wrap(types.ErrDeadlineExceeded, msg, goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(types.ErrGenerationFailed, msg, goerr.V("cause", err.Error()))
}

// buildSystemPrompt creates the fixed tutoring persona
func buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are an intelligent, friendly, and knowledgeable AI tutor for students. Your role is to:\n\n")
	sb.WriteString("1. Provide clear explanations: break complex concepts into simple, understandable terms.\n")
	sb.WriteString("2. Encourage critical thinking: suggest follow-up questions that help students think deeper.\n")
	sb.WriteString("3. Adapt to the learning level: match your explanation to the apparent knowledge level of the question.\n")
	sb.WriteString("4. Be patient and supportive: keep a positive, encouraging tone.\n")
	sb.WriteString("5. Provide real-world examples: connect abstract concepts to practical applications.\n")
	sb.WriteString("6. Encourage active learning: suggest activities or further reading when appropriate.\n\n")
	sb.WriteString("If you are unsure about something, be honest about it and suggest where the student might find more information.\n\n")
	sb.WriteString("When grounding material is provided, prefer it over your own recollection.\n")

	return sb.String()
}

// buildUserPrompt assembles conversation history, grounding context, and the
// question into one prompt.
func (c *client) buildUserPrompt(input *model.TutorInput) string {
	var sb strings.Builder

	history := input.History
	if c.historyLimit > 0 && len(history) > c.historyLimit {
		history = history[len(history)-c.historyLimit:]
	}
	if len(history) > 0 {
		sb.WriteString("## Conversation so far:\n\n")
		for _, it := range history {
			fmt.Fprintf(&sb, "Student: %s\n", it.Query)
			fmt.Fprintf(&sb, "Tutor: %s\n", it.Response)
		}
		sb.WriteString("\n")
	}

	if input.Context != "" {
		sb.WriteString("Use this additional information to help answer the question:\n\n")
		sb.WriteString(input.Context)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Question:\n\n")
	sb.WriteString(input.Question)
	sb.WriteString("\n")

	return sb.String()
}

// buildSummaryPrompt formats the session transcript for insight extraction
func buildSummaryPrompt(session *model.Session) string {
	var sb strings.Builder

	sb.WriteString("Summarize this tutoring conversation and provide learning insights:\n\n")
	for _, it := range session.Interactions {
		fmt.Fprintf(&sb, "Student: %s\n", it.Query)
		fmt.Fprintf(&sb, "Tutor: %s\n", it.Response)
	}
	sb.WriteString("\nPlease provide:\n")
	sb.WriteString("1. Main topics discussed\n")
	sb.WriteString("2. Key learning points\n")
	sb.WriteString("3. Suggested next steps for the student\n")
	sb.WriteString("4. Areas that might need more attention\n")

	return sb.String()
}

// buildResponseSchema creates the JSON schema for structured output
func (c *client) buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "TutorAnswer",
		Description: "Structured tutoring answer to a student question",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"answer": {
				Type:        gollem.TypeString,
				Description: "The difficulty-adjusted answer to the question",
				Required:    true,
			},
			"complexity_level": {
				Type:        gollem.TypeString,
				Description: "Apparent complexity of the question: beginner, intermediate, or advanced",
				Required:    true,
			},
			"key_concepts": {
				Type:        gollem.TypeArray,
				Description: "Main concepts touched by the answer",
				Items: &gollem.Parameter{
					Type: gollem.TypeString,
				},
			},
			"follow_up_questions": {
				Type:        gollem.TypeArray,
				Description: "Up to three follow-up questions encouraging deeper learning",
				Items: &gollem.Parameter{
					Type: gollem.TypeString,
				},
			},
		},
	}
}
