package chatbotconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketSlider(t *testing.T) {
	tests := []struct {
		value int
		want  Tier
	}{
		{0, TierBeginner},
		{15, TierBeginner},
		{33, TierBeginner},
		{34, TierIntermediate},
		{50, TierIntermediate},
		{66, TierIntermediate},
		{67, TierExpert},
		{100, TierExpert},
	}
	for _, tc := range tests {
		got, err := BucketSlider(tc.value)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "value %d", tc.value)
	}
}

func TestBucketSliderOutOfRange(t *testing.T) {
	for _, value := range []int{-1, 101, 1000} {
		_, err := BucketSlider(value)
		require.Error(t, err, "value %d", value)
	}
}

func TestParseLanguage(t *testing.T) {
	require.Equal(t, LanguageDE, ParseLanguage("de"))
	require.Equal(t, LanguageDE, ParseLanguage("DE"))
	require.Equal(t, LanguageEN, ParseLanguage("en"))
	require.Equal(t, LanguageEN, ParseLanguage(""))
	require.Equal(t, LanguageEN, ParseLanguage("fr"))
}

func TestLoadEmbeddedDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Version)
	require.NotEmpty(t, cfg.Usecase)
	require.NotEmpty(t, cfg.Beginner.ConversationRole)
	require.NotEmpty(t, cfg.General.SummaryRole)
	require.Contains(t, cfg.SolarOwnership, "yes")
	require.Contains(t, cfg.SolarOwnership, "no")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/chatbot_config.json")
	require.Error(t, err)
}

func TestValidateMissingKeys(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Version = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Intermediate.ConversationRole = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.General.SummaryMaxTokens = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	delete(cfg.SolarOwnership, "no")
	require.Error(t, cfg.Validate())
}

func TestOwnershipFallback(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	known := cfg.Ownership("yes")
	require.NotEmpty(t, known.Questions)

	fallback := cfg.Ownership("maybe")
	require.Equal(t, cfg.SolarOwnership["no"], fallback)
}

func TestTierConfigLookup(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, cfg.Expert, cfg.TierConfig(TierExpert))
	require.Equal(t, cfg.Intermediate, cfg.TierConfig(TierIntermediate))
	require.Equal(t, cfg.Beginner, cfg.TierConfig(TierBeginner))
}
