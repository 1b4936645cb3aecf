package apiv1_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	studyerrors "github.com/solarstories/chatbot/internal/errors"
	"github.com/solarstories/chatbot/internal/profile"
	"github.com/solarstories/chatbot/plugin/llm"
	"github.com/solarstories/chatbot/server/router/apiv1"
	"github.com/solarstories/chatbot/server/session"
	"github.com/solarstories/chatbot/store"
	"github.com/solarstories/chatbot/store/db/sqlite"
)

var errTest = studyerrors.CompletionService("completion failed", nil)

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestService(t *testing.T, completer llm.Completer) (*echo.Echo, *store.Store) {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "chatbot_test.db"),
		Secret: "test-secret",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = st.Close()
	})

	cfg, err := chatbotconfig.Load("")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	machine := session.NewMachine(st, completer, cfg)
	codec := session.NewTokenCodec(p.Secret)
	service := apiv1.NewAPIV1Service(p, st, cfg, machine, codec, logger)

	e := echo.New()
	service.RegisterRoutes(e)
	return e, st
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func TestHealthz(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{})

	rec, body := doJSON(t, e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}

func TestInitConversation(t *testing.T) {
	e, st := newTestService(t, &fakeCompleter{response: "Welcome to the solar study!"})

	rec, body := doJSON(t, e, http.MethodPost, "/api/init", `{
		"proficiency": "beginner",
		"consent_given": true,
		"language": "en",
		"usecase_specific_info": {"solar_panel_ownership": "yes"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Welcome to the solar study!", body["initial_message"])

	conversationID := int32(body["conversation_id"].(float64))
	conversation, err := st.GetConversation(context.Background(), &store.FindConversation{ID: &conversationID})
	require.NoError(t, err)
	require.Equal(t, "beginner", conversation.Proficiency)

	messages, err := st.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversationID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, store.MessageRoleAssistant, messages[0].Role)
}

func TestInitConversationUnknownTier(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{})

	rec, body := doJSON(t, e, http.MethodPost, "/api/init", `{"proficiency": "wizard", "consent_given": true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", body["code"])
}

func TestChatMissingConversation(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{response: "hi"})

	rec, body := doJSON(t, e, http.MethodPost, "/api/chat", `{"conversation_id": 999, "message": "hello"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", body["code"])
}

func TestChatRoundTrip(t *testing.T) {
	e, st := newTestService(t, &fakeCompleter{response: "solar panels last about 25 years"})

	conversation, err := st.CreateConversation(context.Background(), &store.Conversation{
		Proficiency: "beginner", ChatbotVersion: "2.0.0", Usecase: "solar", ConsentGiven: true,
	})
	require.NoError(t, err)

	rec, body := doJSON(t, e, http.MethodPost, "/api/chat", `{
		"conversation_id": `+itoa(conversation.ID)+`,
		"message": "How long do panels last?",
		"history": [{"role": "assistant", "content": "Hello!"}],
		"language": "en"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "solar panels last about 25 years", body["response"])

	messages, err := st.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	require.Len(t, messages, 2)
}

func TestUpdateUsecase(t *testing.T) {
	e, st := newTestService(t, &fakeCompleter{})

	conversation, err := st.CreateConversation(context.Background(), &store.Conversation{
		Proficiency: "beginner", ChatbotVersion: "2.0.0", Usecase: "solar", ConsentGiven: true,
		UsecaseInfo: map[string]any{"solar_panel_ownership": "no"},
	})
	require.NoError(t, err)

	rec, body := doJSON(t, e, http.MethodPost, "/api/update_usecase", `{
		"conversation_id": `+itoa(conversation.ID)+`,
		"additional_info": {"region": "Bern"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := body["updated_info"].(map[string]any)
	require.Equal(t, "no", updated["solar_panel_ownership"])
	require.Equal(t, "Bern", updated["region"])
}

func TestUpdateUsecaseMissingConversation(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{})

	rec, _ := doJSON(t, e, http.MethodPost, "/api/update_usecase", `{"conversation_id": 404, "additional_info": {"a": "b"}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConfig(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{})

	rec, body := doJSON(t, e, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, body["version"])
	require.Contains(t, body, "solar_ownership")
}

func TestFeedbackEndpoint(t *testing.T) {
	e, st := newTestService(t, &fakeCompleter{})

	rec, body := doJSON(t, e, http.MethodPost, "/api/feedback", `{"feedback_text": "loved it", "rating": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Feedback submitted successfully.", body["message"])

	list, err := st.ListFeedback(context.Background(), &store.FindFeedback{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSessionFlowOverHTTP(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{response: "model output"})

	rec, body := doJSON(t, e, http.MethodPost, "/api/session/start", `{
		"consent_given": true,
		"proficiency": 40,
		"language": "en",
		"usecase_specific_info": {"solar_panel_ownership": "yes"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(session.StateAwaitingStatement), body["state"])
	token := body["session_token"].(string)
	require.NotEmpty(t, token)

	statement := "I am curious whether rooftop solar could cover my family's needs."
	rec, body = doJSON(t, e, http.MethodPost, "/api/session/statement",
		`{"session_token": "`+token+`", "statement": "`+statement+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(session.StateAwaitingInitialRating), body["state"])
	token = body["session_token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/session/initial_rating",
		`{"session_token": "`+token+`", "rating": 50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(session.StateConversing), body["state"])
	require.Equal(t, "model output", body["payload"].(map[string]any)["greeting"])
	token = body["session_token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/session/message",
		`{"session_token": "`+token+`", "message": "What about winter?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token = body["session_token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/session/done",
		`{"session_token": "`+token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(session.StateAwaitingFinalRating), body["state"])
	token = body["session_token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/session/final_rating",
		`{"session_token": "`+token+`", "rating": 70}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token = body["session_token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/session/feedback",
		`{"session_token": "`+token+`", "feedback_text": "helpful", "stars": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(session.StateCompleted), body["state"])
}

func TestSessionIllegalTransition(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{response: "model output"})

	rec, body := doJSON(t, e, http.MethodPost, "/api/session/start", `{
		"consent_given": true, "proficiency": 10, "language": "en",
		"usecase_specific_info": {}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["session_token"].(string)

	// Sending a chat message before the statement step is a conflict.
	rec, body = doJSON(t, e, http.MethodPost, "/api/session/message",
		`{"session_token": "`+token+`", "message": "hello"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ILLEGAL_TRANSITION", body["code"])
}

func TestSessionRejectsBadToken(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{})

	rec, body := doJSON(t, e, http.MethodPost, "/api/session/message",
		`{"session_token": "garbage", "message": "hello"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", body["code"])

	rec, _ = doJSON(t, e, http.MethodPost, "/api/session/message", `{"message": "hello"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStatementTooShort(t *testing.T) {
	e, _ := newTestService(t, &fakeCompleter{})

	rec, body := doJSON(t, e, http.MethodPost, "/api/session/start", `{
		"consent_given": true, "proficiency": 10, "language": "en",
		"usecase_specific_info": {}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["session_token"].(string)

	rec, body = doJSON(t, e, http.MethodPost, "/api/session/statement",
		`{"session_token": "`+token+`", "statement": "too short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", body["code"])
}

func TestCompletionFailureMapsToBadGateway(t *testing.T) {
	e, st := newTestService(t, &fakeCompleter{err: errTest})

	conversation, err := st.CreateConversation(context.Background(), &store.Conversation{
		Proficiency: "beginner", ChatbotVersion: "2.0.0", Usecase: "solar", ConsentGiven: true,
	})
	require.NoError(t, err)

	rec, _ := doJSON(t, e, http.MethodPost, "/api/chat",
		`{"conversation_id": `+itoa(conversation.ID)+`, "message": "hello"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// The user message survives the failed completion.
	messages, err := st.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversation.ID})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, store.MessageRoleUser, messages[0].Role)
}
