// Package chatbotconfig loads the versioned study configuration: per-tier
// prompt roles and model parameters, the use-case question sets, and the
// localized participant-facing texts. The configuration is read once at
// startup and validated eagerly; a missing key is a fatal error.
package chatbotconfig

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

//go:embed chatbot_config.json
var defaultConfigJSON []byte

// Tier is the proficiency tier a participant is bucketed into.
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
	TierExpert       Tier = "expert"
)

// BucketSlider maps a 0-100 slider value to a proficiency tier.
// Boundaries are inclusive: [0,33] beginner, [34,66] intermediate, [67,100] expert.
func BucketSlider(value int) (Tier, error) {
	switch {
	case value >= 0 && value <= 33:
		return TierBeginner, nil
	case value >= 34 && value <= 66:
		return TierIntermediate, nil
	case value >= 67 && value <= 100:
		return TierExpert, nil
	default:
		return "", errors.Errorf("slider value %d out of range [0,100]", value)
	}
}

// Language selects the localized texts and the prompt language directive.
type Language string

const (
	LanguageEN Language = "en"
	LanguageDE Language = "de"
)

// ParseLanguage normalizes a client-supplied language code, defaulting to English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(s, string(LanguageDE)) {
		return LanguageDE
	}
	return LanguageEN
}

// Localized is a text available in every supported language.
type Localized struct {
	EN string `json:"en"`
	DE string `json:"de"`
}

// Get returns the text for the given language.
func (l Localized) Get(lang Language) string {
	if lang == LanguageDE {
		return l.DE
	}
	return l.EN
}

// TierConfig holds the conversation prompt role and model parameters for one tier.
type TierConfig struct {
	ConversationRole        string  `json:"conversation_role"`
	ConversationMaxTokens   int     `json:"conversation_max_tokens"`
	ConversationTemperature float32 `json:"conversation_temperature"`
}

// GeneralConfig holds the roles and parameters shared across tiers.
type GeneralConfig struct {
	GeneralRole        string  `json:"general_role"`
	SummaryRole        string  `json:"summary_role"`
	SummaryMaxTokens   int     `json:"summary_max_tokens"`
	SummaryTemperature float32 `json:"summary_temperature"`
}

// OwnershipConfig holds the question set and rating prompts for one solar-ownership value.
type OwnershipConfig struct {
	Questions   []string  `json:"questions"`
	Q1          Localized `json:"q1"`
	Q2          Localized `json:"q2"`
	FinalRating Localized `json:"final_rating"`
}

// Config is the full chatbot configuration.
type Config struct {
	Version string `json:"version"`
	Usecase string `json:"usecase"`

	Beginner     TierConfig    `json:"beginner"`
	Intermediate TierConfig    `json:"intermediate"`
	Expert       TierConfig    `json:"expert"`
	General      GeneralConfig `json:"general"`

	// SolarOwnership is keyed by ownership value ("yes" / "no").
	SolarOwnership map[string]OwnershipConfig `json:"solar_ownership"`

	Concerns     map[string][]string `json:"concerns"`
	DisclaimerEN string              `json:"disclaimer_en"`
	DisclaimerDE string              `json:"disclaimer_de"`
}

// TierConfig returns the tier section for the given tier.
func (c *Config) TierConfig(tier Tier) TierConfig {
	switch tier {
	case TierIntermediate:
		return c.Intermediate
	case TierExpert:
		return c.Expert
	default:
		return c.Beginner
	}
}

// Ownership returns the use-case section for the given ownership value,
// falling back to "no" for unknown values, per the original deployment.
func (c *Config) Ownership(value string) OwnershipConfig {
	if oc, ok := c.SolarOwnership[value]; ok {
		return oc
	}
	return c.SolarOwnership["no"]
}

// Disclaimer returns the localized participant disclaimer.
func (c *Config) Disclaimer(lang Language) string {
	if lang == LanguageDE {
		return c.DisclaimerDE
	}
	return c.DisclaimerEN
}

// Load reads and validates the configuration from the given path.
// An empty path loads the embedded default configuration.
func Load(path string) (*Config, error) {
	raw := defaultConfigJSON
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read chatbot config %s", path)
		}
	}

	config := &Config{}
	if err := json.Unmarshal(raw, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse chatbot config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that every key the prompt assembly depends on is present.
// Failures here abort startup; the alternative is a panic at first use.
func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("chatbot config: missing version")
	}
	if c.Usecase == "" {
		return errors.New("chatbot config: missing usecase")
	}

	tiers := map[Tier]TierConfig{
		TierBeginner:     c.Beginner,
		TierIntermediate: c.Intermediate,
		TierExpert:       c.Expert,
	}
	for tier, tc := range tiers {
		if tc.ConversationRole == "" {
			return errors.Errorf("chatbot config: missing %s.conversation_role", tier)
		}
		if tc.ConversationMaxTokens <= 0 {
			return errors.Errorf("chatbot config: missing %s.conversation_max_tokens", tier)
		}
		if tc.ConversationTemperature <= 0 {
			return errors.Errorf("chatbot config: missing %s.conversation_temperature", tier)
		}
	}

	if c.General.GeneralRole == "" {
		return errors.New("chatbot config: missing general.general_role")
	}
	if c.General.SummaryRole == "" {
		return errors.New("chatbot config: missing general.summary_role")
	}
	if c.General.SummaryMaxTokens <= 0 {
		return errors.New("chatbot config: missing general.summary_max_tokens")
	}
	if c.General.SummaryTemperature <= 0 {
		return errors.New("chatbot config: missing general.summary_temperature")
	}

	for _, value := range []string{"yes", "no"} {
		oc, ok := c.SolarOwnership[value]
		if !ok {
			return errors.Errorf("chatbot config: missing solar_ownership.%s", value)
		}
		if len(oc.Questions) == 0 {
			return errors.Errorf("chatbot config: missing solar_ownership.%s.questions", value)
		}
		if oc.FinalRating.EN == "" || oc.FinalRating.DE == "" {
			return errors.Errorf("chatbot config: missing solar_ownership.%s.final_rating", value)
		}
	}

	return nil
}
