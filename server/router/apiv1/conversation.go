package apiv1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/internal/errors"
	"github.com/solarstories/chatbot/internal/observability"
	"github.com/solarstories/chatbot/server/prompt"
	"github.com/solarstories/chatbot/store"
)

// InitConversationRequest opens a conversation in one shot: the caller has
// already resolved the proficiency tier and collected consent.
type InitConversationRequest struct {
	Proficiency  string         `json:"proficiency"`
	ConsentGiven bool           `json:"consent_given"`
	Language     string         `json:"language"`
	UsecaseInfo  map[string]any `json:"usecase_specific_info"`
}

// InitConversation creates a conversation and returns the opening assistant
// message.
// POST /api/init
func (s *APIV1Service) InitConversation(c echo.Context) error {
	ctx := c.Request().Context()

	var req InitConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	tier := chatbotconfig.Tier(req.Proficiency)
	switch tier {
	case chatbotconfig.TierBeginner, chatbotconfig.TierIntermediate, chatbotconfig.TierExpert:
	default:
		return s.errorJSON(c, errors.Validationf("unknown proficiency tier: %s", req.Proficiency))
	}

	reqCtx := observability.NewRequestContext(s.logger, "init", 0)

	conversation, err := s.Store.CreateConversation(ctx, &store.Conversation{
		StartTs:        time.Now().Unix(),
		Proficiency:    string(tier),
		ChatbotVersion: s.Config.Version,
		Usecase:        s.Config.Usecase,
		ConsentGiven:   req.ConsentGiven,
		UsecaseInfo:    req.UsecaseInfo,
	})
	if err != nil {
		return s.errorJSON(c, err)
	}
	reqCtx.ConversationID = conversation.ID

	lang := chatbotconfig.ParseLanguage(req.Language)
	ownership := "no"
	if v, ok := req.UsecaseInfo["solar_panel_ownership"].(string); ok && v != "" {
		ownership = v
	}

	greeting, err := s.Machine.Completer().Complete(ctx, prompt.Greeting(s.Config, tier, lang, ownership))
	if err != nil {
		return s.errorJSON(c, err)
	}
	if _, err := s.Store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleAssistant,
		Content:        greeting,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return s.errorJSON(c, err)
	}

	reqCtx.Info("conversation initialized")
	return c.JSON(http.StatusOK, map[string]any{
		"conversation_id": conversation.ID,
		"initial_message": greeting,
	})
}

// HistoryItem is one prior turn supplied by the client.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one participant turn with the client-held transcript.
type ChatRequest struct {
	ConversationID int32         `json:"conversation_id"`
	Message        string        `json:"message"`
	History        []HistoryItem `json:"history"`
	Language       string        `json:"language"`
}

// Chat handles one turn of the stateless chat surface. The transcript comes
// from the client; the server only persists and completes.
// POST /api/chat
func (s *APIV1Service) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return s.errorJSON(c, errors.Validation("message must not be empty"))
	}

	reqCtx := observability.NewRequestContext(s.logger, "chat", req.ConversationID)

	if _, err := s.Store.CreateMessage(ctx, &store.Message{
		ConversationID: req.ConversationID,
		Role:           store.MessageRoleUser,
		Content:        req.Message,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return s.errorJSON(c, err)
	}

	transcript := make([]*store.Message, 0, len(req.History))
	for _, item := range req.History {
		transcript = append(transcript, &store.Message{
			Role:    store.MessageRole(item.Role),
			Content: item.Content,
		})
	}

	lang := chatbotconfig.ParseLanguage(req.Language)
	reply, err := s.Machine.Completer().Complete(ctx, prompt.ChatTurn(s.Config, lang, transcript, req.Message))
	if err != nil {
		return s.errorJSON(c, err)
	}

	if _, err := s.Store.CreateMessage(ctx, &store.Message{
		ConversationID: req.ConversationID,
		Role:           store.MessageRoleAssistant,
		Content:        reply,
		Type:           store.MessageTypeConversation,
	}); err != nil {
		return s.errorJSON(c, err)
	}

	reqCtx.Info("chat turn completed")
	return c.JSON(http.StatusOK, map[string]string{"response": reply})
}

// FeedbackRequest records participant feedback, optionally tied to a
// conversation.
type FeedbackRequest struct {
	ConversationID *int32 `json:"conversation_id"`
	FeedbackText   string `json:"feedback_text"`
	Rating         *int32 `json:"rating"`
}

// SubmitFeedback stores one feedback row.
// POST /api/feedback
func (s *APIV1Service) SubmitFeedback(c echo.Context) error {
	ctx := c.Request().Context()

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if _, err := s.Store.CreateFeedback(ctx, &store.Feedback{
		ConversationID: req.ConversationID,
		Text:           req.FeedbackText,
		Rating:         req.Rating,
	}); err != nil {
		return s.errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Feedback submitted successfully."})
}

// UpdateUsecaseRequest merges additional attributes into a conversation's
// use-case info.
type UpdateUsecaseRequest struct {
	ConversationID int32          `json:"conversation_id"`
	AdditionalInfo map[string]any `json:"additional_info"`
}

// UpdateUsecase shallow-merges the supplied attributes and returns the
// merged map.
// POST /api/update_usecase
func (s *APIV1Service) UpdateUsecase(c echo.Context) error {
	ctx := c.Request().Context()

	var req UpdateUsecaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	merged, err := s.Store.MergeUsecaseInfo(ctx, req.ConversationID, req.AdditionalInfo)
	if err != nil {
		return s.errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":      "Usecase info updated",
		"updated_info": merged,
	})
}

// GetConfig returns the full chatbot configuration.
// GET /api/config
func (s *APIV1Service) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Config)
}
