// Package apiv1 exposes the study chatbot over plain JSON endpoints. Two
// surfaces are registered: the stateless /api/* endpoints matching the
// original deployment, and the token-driven /api/session/* endpoints that
// walk the full study flow.
package apiv1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/internal/errors"
	"github.com/solarstories/chatbot/internal/profile"
	"github.com/solarstories/chatbot/server/session"
	"github.com/solarstories/chatbot/store"
)

var errEmptyToken = errors.Validation("session_token is required")

// APIV1Service wires the handlers to the session machine and the store.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Config  *chatbotconfig.Config
	Machine *session.Machine
	Codec   *session.TokenCodec

	logger *slog.Logger
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, st *store.Store, cfg *chatbotconfig.Config, machine *session.Machine, codec *session.TokenCodec, logger *slog.Logger) *APIV1Service {
	return &APIV1Service{
		Profile: p,
		Store:   st,
		Config:  cfg,
		Machine: machine,
		Codec:   codec,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)

	api := e.Group("/api")
	api.POST("/init", s.InitConversation)
	api.POST("/chat", s.Chat)
	api.POST("/feedback", s.SubmitFeedback)
	api.POST("/update_usecase", s.UpdateUsecase)
	api.GET("/config", s.GetConfig)

	sess := api.Group("/session")
	sess.POST("/start", s.SessionStart)
	sess.POST("/statement", s.SessionStatement)
	sess.POST("/initial_rating", s.SessionInitialRating)
	sess.POST("/message", s.SessionMessage)
	sess.POST("/done", s.SessionDone)
	sess.POST("/final_rating", s.SessionFinalRating)
	sess.POST("/feedback", s.SessionFeedback)
	sess.POST("/new", s.SessionNew)
}

// Healthz reports process liveness.
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// errorJSON translates a coded error into the matching HTTP response.
func (s *APIV1Service) errorJSON(c echo.Context, err error) error {
	code := errors.GetCodeFromError(err, errors.ErrCodePersistence)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeValidation:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeIllegalTransition:
		status = http.StatusConflict
	case errors.ErrCodeCompletionService:
		status = http.StatusBadGateway
	}

	message := "internal error"
	if studyErr, ok := err.(*errors.StudyError); ok && status != http.StatusInternalServerError {
		message = studyErr.Message
	}
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]string{"error": message, "code": string(code)})
}
