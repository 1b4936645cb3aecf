package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/plugin/llm"
	"github.com/solarstories/chatbot/store"
)

func testConfig(t *testing.T) *chatbotconfig.Config {
	t.Helper()
	cfg, err := chatbotconfig.Load("")
	require.NoError(t, err)
	return cfg
}

func TestGreetingEnglish(t *testing.T) {
	cfg := testConfig(t)

	req := Greeting(cfg, chatbotconfig.TierBeginner, chatbotconfig.LanguageEN, "yes")

	require.True(t, strings.HasPrefix(req.System, "Use the English Language."))
	require.Contains(t, req.System, "If German, you can use a typical Swiss Greeting")
	require.Contains(t, req.System, cfg.General.GeneralRole)
	require.Contains(t, req.System, cfg.Beginner.ConversationRole)

	require.Len(t, req.Turns, 1)
	require.Equal(t, llm.RoleUser, req.Turns[0].Role)
	require.Contains(t, req.Turns[0].Content, "Solar Ownership: yes.")
	require.Contains(t, req.Turns[0].Content, "User Proficiency Level: beginner")
	for _, q := range cfg.SolarOwnership["yes"].Questions {
		require.Contains(t, req.Turns[0].Content, q)
	}

	require.Equal(t, cfg.Beginner.ConversationMaxTokens, req.MaxTokens)
	require.Equal(t, cfg.Beginner.ConversationTemperature, req.Temperature)
}

func TestGreetingGermanUsesTierParams(t *testing.T) {
	cfg := testConfig(t)

	req := Greeting(cfg, chatbotconfig.TierExpert, chatbotconfig.LanguageDE, "no")

	require.True(t, strings.HasPrefix(req.System, "Verwende die Deutsche Sprache."))
	require.Contains(t, req.System, cfg.Expert.ConversationRole)
	require.Equal(t, cfg.Expert.ConversationMaxTokens, req.MaxTokens)
	require.Equal(t, cfg.Expert.ConversationTemperature, req.Temperature)
}

func TestGreetingUnknownOwnershipFallsBack(t *testing.T) {
	cfg := testConfig(t)

	req := Greeting(cfg, chatbotconfig.TierBeginner, chatbotconfig.LanguageEN, "unknown")
	for _, q := range cfg.SolarOwnership["no"].Questions {
		require.Contains(t, req.Turns[0].Content, q)
	}
}

func TestChatTurn(t *testing.T) {
	cfg := testConfig(t)
	transcript := []*store.Message{
		{Role: store.MessageRoleAssistant, Content: "Hello, how can I help?"},
		{Role: store.MessageRoleUser, Content: "Tell me about solar panels."},
		{Role: store.MessageRoleAssistant, Content: "Gladly."},
	}

	req := ChatTurn(cfg, chatbotconfig.LanguageEN, transcript, "How much do they cost?")

	require.Equal(t, cfg.General.GeneralRole+" Please answer in English.", req.System)
	require.Equal(t, chatMaxTokens, req.MaxTokens)
	require.Equal(t, float32(chatTemperature), req.Temperature)

	require.Len(t, req.Turns, 2)
	require.Equal(t, llm.RoleAssistant, req.Turns[0].Role)
	wantContext := strings.Join([]string{
		"assistant: Hello, how can I help?",
		"user: Tell me about solar panels.",
		"assistant: Gladly.",
		"user: How much do they cost?",
	}, "\n")
	require.Equal(t, wantContext, req.Turns[0].Content)
	require.Equal(t, llm.RoleUser, req.Turns[1].Role)
	require.Equal(t, "How much do they cost?", req.Turns[1].Content)
}

func TestChatTurnGerman(t *testing.T) {
	cfg := testConfig(t)

	req := ChatTurn(cfg, chatbotconfig.LanguageDE, nil, "Hallo")
	require.Equal(t, cfg.General.GeneralRole+" Please answer in German.", req.System)
	require.Equal(t, "user: Hallo", req.Turns[0].Content)
}

func TestSummary(t *testing.T) {
	cfg := testConfig(t)

	req := Summary(cfg, chatbotconfig.LanguageEN, "I think solar energy is the future of home power generation.")

	require.Equal(t, "Use the English Language."+cfg.General.SummaryRole, req.System)
	require.Len(t, req.Turns, 1)
	require.Equal(t, llm.RoleUser, req.Turns[0].Role)
	require.Equal(t, cfg.General.SummaryMaxTokens, req.MaxTokens)
	require.Equal(t, cfg.General.SummaryTemperature, req.Temperature)
}
