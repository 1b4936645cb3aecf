package session_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/internal/errors"
	"github.com/solarstories/chatbot/server/session"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := session.NewTokenCodec("test-secret")

	original := &session.Session{
		ConversationID: 42,
		State:          session.StateConversing,
		Language:       chatbotconfig.LanguageDE,
		Tier:           chatbotconfig.TierIntermediate,
		Ownership:      "yes",
		Greeted:        true,
		Summary:        "a concise summary",
	}

	token, err := codec.Encode(original)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestTokenRejectsTampering(t *testing.T) {
	codec := session.NewTokenCodec("test-secret")

	token, err := codec.Encode(&session.Session{ConversationID: 1, State: session.StateAwaitingStatement})
	require.NoError(t, err)

	_, err = codec.Decode(token + "x")
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := session.NewTokenCodec("secret-a").Encode(&session.Session{ConversationID: 1})
	require.NoError(t, err)

	_, err = session.NewTokenCodec("secret-b").Decode(token)
	require.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	codec := session.NewTokenCodec("test-secret")

	_, err := codec.Decode("not-a-token")
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
