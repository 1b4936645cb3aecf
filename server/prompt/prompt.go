// Package prompt assembles the completion requests for the study chatbot.
// All functions are pure; they take the loaded configuration and session
// facts and return a request for the completion client.
package prompt

import (
	"fmt"
	"strings"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/plugin/llm"
	"github.com/solarstories/chatbot/store"
)

const (
	chatMaxTokens   = 500
	chatTemperature = 0.7
)

// languageDirective is the directive placed at the front of system prompts
// that carry a language selection.
func languageDirective(lang chatbotconfig.Language) string {
	if lang == chatbotconfig.LanguageDE {
		return "Verwende die Deutsche Sprache."
	}
	return "Use the English Language."
}

// Greeting builds the request that opens a conversation. The system prompt
// combines the language directive, the shared role, and the tier role; the
// single user turn carries the ownership value and the question set to
// emphasize.
func Greeting(cfg *chatbotconfig.Config, tier chatbotconfig.Tier, lang chatbotconfig.Language, ownership string) llm.CompletionRequest {
	tierCfg := cfg.TierConfig(tier)
	questions := cfg.Ownership(ownership).Questions

	system := fmt.Sprintf(
		"%s If German, you can use a typical Swiss Greeting %s %s",
		languageDirective(lang), cfg.General.GeneralRole, tierCfg.ConversationRole,
	)
	user := fmt.Sprintf(
		"Solar Ownership: %s. Based on this, emphasize these questions (concise and not all at once): %s User Proficiency Level: %s",
		ownership, strings.Join(questions, ", "), tier,
	)

	return llm.CompletionRequest{
		System:      system,
		Turns:       []llm.Turn{{Role: llm.RoleUser, Content: user}},
		MaxTokens:   tierCfg.ConversationMaxTokens,
		Temperature: tierCfg.ConversationTemperature,
	}
}

// ChatTurn builds the request for one participant message. The prior
// transcript is flattened into a single assistant turn with role-prefixed
// lines, followed by the new message as the user turn.
func ChatTurn(cfg *chatbotconfig.Config, lang chatbotconfig.Language, transcript []*store.Message, message string) llm.CompletionRequest {
	languagePrompt := " Please answer in English."
	if lang == chatbotconfig.LanguageDE {
		languagePrompt = " Please answer in German."
	}

	lines := make([]string, 0, len(transcript)+1)
	for _, m := range transcript {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	lines = append(lines, fmt.Sprintf("user: %s", message))

	return llm.CompletionRequest{
		System: cfg.General.GeneralRole + languagePrompt,
		Turns: []llm.Turn{
			{Role: llm.RoleAssistant, Content: strings.Join(lines, "\n")},
			{Role: llm.RoleUser, Content: message},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	}
}

// Summary builds the request that condenses the participant's initial
// statement.
func Summary(cfg *chatbotconfig.Config, lang chatbotconfig.Language, statement string) llm.CompletionRequest {
	return llm.CompletionRequest{
		System:      languageDirective(lang) + cfg.General.SummaryRole,
		Turns:       []llm.Turn{{Role: llm.RoleUser, Content: statement}},
		MaxTokens:   cfg.General.SummaryMaxTokens,
		Temperature: cfg.General.SummaryTemperature,
	}
}
