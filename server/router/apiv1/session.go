package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solarstories/chatbot/internal/observability"
	"github.com/solarstories/chatbot/server/session"
)

// sessionEnvelope is the response wrapper for every /api/session endpoint.
// The token carries the updated session state; the client sends it back with
// the next request.
type sessionEnvelope struct {
	SessionToken string         `json:"session_token"`
	State        session.State  `json:"state"`
	Payload      map[string]any `json:"payload,omitempty"`
}

func (s *APIV1Service) sessionJSON(c echo.Context, sess *session.Session, payload map[string]any) error {
	token, err := s.Codec.Encode(sess)
	if err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, sessionEnvelope{
		SessionToken: token,
		State:        sess.State,
		Payload:      payload,
	})
}

// decodeSession extracts and verifies the session token from a request body.
func (s *APIV1Service) decodeSession(c echo.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, s.errorJSON(c, errEmptyToken)
	}
	sess, err := s.Codec.Decode(token)
	if err != nil {
		return nil, s.errorJSON(c, err)
	}
	return sess, nil
}

// SessionStartRequest carries the consent screen submission.
type SessionStartRequest struct {
	ConsentGiven bool           `json:"consent_given"`
	Proficiency  int            `json:"proficiency"`
	Language     string         `json:"language"`
	UsecaseInfo  map[string]any `json:"usecase_specific_info"`
}

// SessionStart begins a study session.
// POST /api/session/start
func (s *APIV1Service) SessionStart(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	reqCtx := observability.NewRequestContext(s.logger, "session_start", 0)
	sess, err := s.Machine.Start(ctx, session.StartRequest{
		ConsentGiven: req.ConsentGiven,
		Slider:       req.Proficiency,
		Language:     req.Language,
		UsecaseInfo:  req.UsecaseInfo,
	})
	if err != nil {
		return s.errorJSON(c, err)
	}
	reqCtx.ConversationID = sess.ConversationID
	reqCtx.Info("session started")

	return s.sessionJSON(c, sess, map[string]any{
		"conversation_id": sess.ConversationID,
		"tier":            sess.Tier,
		"disclaimer":      s.Config.Disclaimer(sess.Language),
	})
}

// SessionStatementRequest carries the initial statement and the optional
// demographic snapshot.
type SessionStatementRequest struct {
	SessionToken  string  `json:"session_token"`
	Statement     string  `json:"statement"`
	AgeGroup      *string `json:"age_group"`
	Gender        *string `json:"gender"`
	HighestDegree *string `json:"highest_degree"`
}

// SessionStatement records the statement and returns its generated summary.
// POST /api/session/statement
func (s *APIV1Service) SessionStatement(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionStatementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sess, err := s.decodeSession(c, req.SessionToken)
	if sess == nil {
		return err
	}

	reqCtx := observability.NewRequestContext(s.logger, "session_statement", sess.ConversationID)
	summary, err := s.Machine.SubmitStatement(ctx, sess, req.Statement, session.Demographics{
		AgeGroup:      req.AgeGroup,
		Gender:        req.Gender,
		HighestDegree: req.HighestDegree,
	})
	if err != nil {
		return s.errorJSON(c, err)
	}
	reqCtx.Info("statement summarized")

	return s.sessionJSON(c, sess, map[string]any{"summary": summary})
}

// SessionRatingRequest carries a 0-100 rating.
type SessionRatingRequest struct {
	SessionToken string `json:"session_token"`
	Rating       int    `json:"rating"`
}

// SessionInitialRating records the pre-conversation rating and generates
// the opening assistant message.
// POST /api/session/initial_rating
func (s *APIV1Service) SessionInitialRating(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionRatingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sess, err := s.decodeSession(c, req.SessionToken)
	if sess == nil {
		return err
	}

	reqCtx := observability.NewRequestContext(s.logger, "session_initial_rating", sess.ConversationID)
	if err := s.Machine.SubmitInitialRating(ctx, sess, req.Rating); err != nil {
		return s.errorJSON(c, err)
	}

	// A failed greeting keeps the session in the conversation state with the
	// rating recorded; the client retries by calling this endpoint again or
	// by sending the first message.
	greeting, err := s.Machine.Greet(ctx, sess)
	if err != nil {
		return s.errorJSON(c, err)
	}
	reqCtx.Info("conversation opened")

	return s.sessionJSON(c, sess, map[string]any{"greeting": greeting})
}

// SessionMessageRequest carries one participant chat turn.
type SessionMessageRequest struct {
	SessionToken string `json:"session_token"`
	Message      string `json:"message"`
}

// SessionMessage handles one chat turn within the session flow.
// POST /api/session/message
func (s *APIV1Service) SessionMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sess, err := s.decodeSession(c, req.SessionToken)
	if sess == nil {
		return err
	}

	reqCtx := observability.NewRequestContext(s.logger, "session_message", sess.ConversationID)
	reply, err := s.Machine.SendMessage(ctx, sess, req.Message)
	if err != nil {
		return s.errorJSON(c, err)
	}
	reqCtx.Info("chat turn completed")

	return s.sessionJSON(c, sess, map[string]any{"response": reply})
}

// SessionTokenRequest carries only the session token.
type SessionTokenRequest struct {
	SessionToken string `json:"session_token"`
}

// SessionDone signals the participant finished conversing.
// POST /api/session/done
func (s *APIV1Service) SessionDone(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sess, err := s.decodeSession(c, req.SessionToken)
	if sess == nil {
		return err
	}

	if err := s.Machine.Done(ctx, sess); err != nil {
		return s.errorJSON(c, err)
	}

	return s.sessionJSON(c, sess, map[string]any{
		"final_rating_prompt": s.Config.Ownership(sess.Ownership).FinalRating.Get(sess.Language),
	})
}

// SessionFinalRating records the post-conversation rating.
// POST /api/session/final_rating
func (s *APIV1Service) SessionFinalRating(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionRatingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sess, err := s.decodeSession(c, req.SessionToken)
	if sess == nil {
		return err
	}

	if err := s.Machine.SubmitFinalRating(ctx, sess, req.Rating); err != nil {
		return s.errorJSON(c, err)
	}

	return s.sessionJSON(c, sess, nil)
}

// SessionFeedbackRequest carries the optional closing feedback.
type SessionFeedbackRequest struct {
	SessionToken string `json:"session_token"`
	FeedbackText string `json:"feedback_text"`
	Stars        *int32 `json:"stars"`
}

// SessionFeedback records feedback and completes the session.
// POST /api/session/feedback
func (s *APIV1Service) SessionFeedback(c echo.Context) error {
	ctx := c.Request().Context()

	var req SessionFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	sess, err := s.decodeSession(c, req.SessionToken)
	if sess == nil {
		return err
	}

	reqCtx := observability.NewRequestContext(s.logger, "session_feedback", sess.ConversationID)
	thanks, err := s.Machine.SubmitFeedback(ctx, sess, req.FeedbackText, req.Stars)
	if err != nil {
		return s.errorJSON(c, err)
	}
	reqCtx.Info("session completed")

	return s.sessionJSON(c, sess, map[string]any{"message": thanks})
}

// SessionNew discards the current session. A completed conversation stays
// in the store; the participant starts over with a fresh conversation.
// POST /api/session/new
func (s *APIV1Service) SessionNew(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Session cleared. Start a new conversation with /api/session/start.",
	})
}
