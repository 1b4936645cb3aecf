// Package session implements the study conversation flow as an explicit
// state machine. A Session carries everything the flow needs between
// requests; the server round-trips it through a signed token so the machine
// itself holds no per-participant state.
package session

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/internal/errors"
	"github.com/solarstories/chatbot/plugin/llm"
	"github.com/solarstories/chatbot/server/prompt"
	"github.com/solarstories/chatbot/store"
)

// State is a step in the study flow. Transitions are strictly forward.
type State string

const (
	StateAwaitingConsent       State = "AWAITING_CONSENT_AND_PROFICIENCY"
	StateProficiencyResolved   State = "PROFICIENCY_RESOLVED"
	StateAwaitingStatement     State = "AWAITING_STATEMENT"
	StateStatementSummarized   State = "STATEMENT_SUMMARIZED"
	StateAwaitingInitialRating State = "AWAITING_INITIAL_RATING"
	StateConversing            State = "CONVERSING"
	StateAwaitingFinalRating   State = "AWAITING_FINAL_RATING"
	StateAwaitingFeedback      State = "AWAITING_FEEDBACK"
	StateCompleted             State = "COMPLETED"
)

const minStatementChars = 30

// Session is the per-participant flow state passed to and returned from
// every transition. It is serialized into the session token between
// requests; everything durable lives in the store.
type Session struct {
	ConversationID int32                  `json:"conversation_id"`
	State          State                  `json:"state"`
	Language       chatbotconfig.Language `json:"language"`
	Tier           chatbotconfig.Tier     `json:"tier"`
	Ownership      string                 `json:"ownership"`
	Greeted        bool                   `json:"greeted"`
	Summary        string                 `json:"summary,omitempty"`
}

// Machine drives session transitions. It is stateless; all per-session
// facts arrive in the Session argument.
type Machine struct {
	store     *store.Store
	completer llm.Completer
	config    *chatbotconfig.Config
}

// NewMachine creates a session machine.
func NewMachine(st *store.Store, completer llm.Completer, config *chatbotconfig.Config) *Machine {
	return &Machine{store: st, completer: completer, config: config}
}

// Completer exposes the completion client for callers that assemble their
// own prompts, such as the stateless chat surface.
func (m *Machine) Completer() llm.Completer {
	return m.completer
}

// StartRequest carries the consent screen submission.
type StartRequest struct {
	ConsentGiven bool
	Slider       int
	Language     string
	UsecaseInfo  map[string]any
}

// Start consumes the consent and proficiency submission, creates the
// conversation, and advances to the statement step.
func (m *Machine) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if !req.ConsentGiven {
		return nil, errors.Validation("consent is required to start a conversation")
	}
	tier, err := chatbotconfig.BucketSlider(req.Slider)
	if err != nil {
		return nil, errors.Validationf("proficiency slider value %d out of range [0,100]", req.Slider)
	}

	conversation, err := m.store.CreateConversation(ctx, &store.Conversation{
		StartTs:        time.Now().Unix(),
		Proficiency:    string(tier),
		ChatbotVersion: m.config.Version,
		Usecase:        m.config.Usecase,
		ConsentGiven:   req.ConsentGiven,
		UsecaseInfo:    req.UsecaseInfo,
	})
	if err != nil {
		return nil, err
	}

	ownership := "no"
	if v, ok := req.UsecaseInfo["solar_panel_ownership"].(string); ok && v != "" {
		ownership = v
	}

	return &Session{
		ConversationID: conversation.ID,
		State:          StateAwaitingStatement,
		Language:       chatbotconfig.ParseLanguage(req.Language),
		Tier:           tier,
		Ownership:      ownership,
	}, nil
}

// Demographics is the optional participant snapshot collected with the
// initial statement.
type Demographics struct {
	AgeGroup      *string
	Gender        *string
	HighestDegree *string
}

// SubmitStatement validates and records the participant's initial statement,
// generates its summary, and advances to the initial rating step. Nothing is
// persisted if the summary call fails, so the submission is retryable.
func (m *Machine) SubmitStatement(ctx context.Context, s *Session, statement string, demo Demographics) (string, error) {
	if s.State == StateCompleted {
		return "", nil
	}
	if s.State != StateAwaitingStatement {
		return "", errors.IllegalTransition(string(s.State), "submit_statement")
	}
	if utf8.RuneCountInString(statement) < minStatementChars {
		return "", errors.Validationf("statement must be at least %d characters", minStatementChars)
	}

	summary, err := m.completer.Complete(ctx, prompt.Summary(m.config, s.Language, statement))
	if err != nil {
		return "", err
	}

	if _, err := m.store.CreateMessage(ctx, &store.Message{
		ConversationID: s.ConversationID,
		Role:           store.MessageRoleUser,
		Content:        statement,
		Type:           store.MessageTypeInitialStatement,
	}); err != nil {
		return "", err
	}
	if _, err := m.store.CreateMessage(ctx, &store.Message{
		ConversationID: s.ConversationID,
		Role:           store.MessageRoleAssistant,
		Content:        summary,
		Type:           store.MessageTypeInitialStatementSummary,
	}); err != nil {
		return "", err
	}
	if demo.AgeGroup != nil || demo.Gender != nil || demo.HighestDegree != nil {
		if err := m.store.UpdateDemographics(ctx, s.ConversationID, demo.AgeGroup, demo.Gender, demo.HighestDegree, true); err != nil {
			return "", err
		}
	}

	s.Summary = summary
	s.State = StateAwaitingInitialRating
	return summary, nil
}

// SubmitInitialRating records the pre-conversation confidence rating and
// advances to the conversation step. The greeting is generated separately
// so a failed completion call can be retried without re-rating.
func (m *Machine) SubmitInitialRating(ctx context.Context, s *Session, value int) error {
	if s.State == StateCompleted {
		return nil
	}
	if s.State != StateAwaitingInitialRating {
		return errors.IllegalTransition(string(s.State), "submit_initial_rating")
	}
	if value < 0 || value > 100 {
		return errors.Validationf("rating %d out of range [0,100]", value)
	}

	if err := m.store.SetInitialRating(ctx, s.ConversationID, int32(value)); err != nil {
		return err
	}
	s.State = StateConversing
	s.Greeted = false
	return nil
}

// Greet generates and persists the opening assistant message. It is a no-op
// once the session is greeted; a failed call leaves the session unchanged
// and may be retried.
func (m *Machine) Greet(ctx context.Context, s *Session) (string, error) {
	if s.State == StateCompleted {
		return "", nil
	}
	if s.State != StateConversing {
		return "", errors.IllegalTransition(string(s.State), "greet")
	}
	if s.Greeted {
		return "", nil
	}

	greeting, err := m.completer.Complete(ctx, prompt.Greeting(m.config, s.Tier, s.Language, s.Ownership))
	if err != nil {
		return "", err
	}
	if _, err := m.store.CreateMessage(ctx, &store.Message{
		ConversationID: s.ConversationID,
		Role:           store.MessageRoleAssistant,
		Content:        greeting,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return "", err
	}

	s.Greeted = true
	return greeting, nil
}

// SendMessage handles one participant turn. The user message is persisted
// before the completion call, so a failed call leaves an unpaired user
// message; that is accepted and the participant simply resubmits.
func (m *Machine) SendMessage(ctx context.Context, s *Session, message string) (string, error) {
	if s.State == StateCompleted {
		return "", nil
	}
	if s.State != StateConversing {
		return "", errors.IllegalTransition(string(s.State), "send_message")
	}
	if message == "" {
		return "", errors.Validation("message must not be empty")
	}
	if !s.Greeted {
		if _, err := m.Greet(ctx, s); err != nil {
			return "", err
		}
	}

	messageType := store.MessageTypeConversation
	transcript, err := m.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &s.ConversationID,
		Type:           &messageType,
	})
	if err != nil {
		return "", err
	}

	if _, err := m.store.CreateMessage(ctx, &store.Message{
		ConversationID: s.ConversationID,
		Role:           store.MessageRoleUser,
		Content:        message,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return "", err
	}

	reply, err := m.completer.Complete(ctx, prompt.ChatTurn(m.config, s.Language, transcript, message))
	if err != nil {
		return "", err
	}

	if _, err := m.store.CreateMessage(ctx, &store.Message{
		ConversationID: s.ConversationID,
		Role:           store.MessageRoleAssistant,
		Content:        reply,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return "", err
	}
	return reply, nil
}

// Done signals that the participant finished the conversation and advances
// to the final rating step.
func (m *Machine) Done(ctx context.Context, s *Session) error {
	if s.State == StateCompleted {
		return nil
	}
	if s.State != StateConversing {
		return errors.IllegalTransition(string(s.State), "done")
	}
	s.State = StateAwaitingFinalRating
	return nil
}

// SubmitFinalRating records the post-conversation rating and advances to
// the feedback step.
func (m *Machine) SubmitFinalRating(ctx context.Context, s *Session, value int) error {
	if s.State == StateCompleted {
		return nil
	}
	if s.State != StateAwaitingFinalRating {
		return errors.IllegalTransition(string(s.State), "submit_final_rating")
	}
	if value < 0 || value > 100 {
		return errors.Validationf("rating %d out of range [0,100]", value)
	}

	if err := m.store.SetFinalRating(ctx, s.ConversationID, int32(value)); err != nil {
		return err
	}
	s.State = StateAwaitingFeedback
	return nil
}

// SubmitFeedback records the optional free-text feedback and star rating,
// persists the localized thank-you message into the transcript, and
// completes the session. An empty submission skips the feedback row but
// still completes.
func (m *Machine) SubmitFeedback(ctx context.Context, s *Session, text string, stars *int32) (string, error) {
	if s.State == StateCompleted {
		return "", nil
	}
	if s.State != StateAwaitingFeedback {
		return "", errors.IllegalTransition(string(s.State), "submit_feedback")
	}
	if stars != nil && (*stars < 1 || *stars > 5) {
		return "", errors.Validationf("star rating %d out of range [1,5]", *stars)
	}

	if text != "" {
		if _, err := m.store.CreateFeedback(ctx, &store.Feedback{
			ConversationID: &s.ConversationID,
			Text:           text,
			Rating:         stars,
		}); err != nil {
			return "", err
		}
	}

	thanks := thanksMessage(s.Language)
	if _, err := m.store.CreateMessage(ctx, &store.Message{
		ConversationID: s.ConversationID,
		Role:           store.MessageRoleAssistant,
		Content:        thanks,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return "", err
	}

	s.State = StateCompleted
	return thanks, nil
}

func thanksMessage(lang chatbotconfig.Language) string {
	if lang == chatbotconfig.LanguageDE {
		return "Ich danke Ihnen für das Feedback - Gerne stehe ich noch für weitere Fragen zur Verfügung!"
	}
	return "Thank you for your feedback - I am happy to answer any further questions you might have!"
}
