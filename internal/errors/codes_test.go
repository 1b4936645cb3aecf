package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := Validation("statement too short")
	require.Equal(t, "[VALIDATION] statement too short", err.Error())

	cause := fmt.Errorf("connection refused")
	wrapped := Persistence("failed to write", cause)
	require.Contains(t, wrapped.Error(), "PERSISTENCE")
	require.Contains(t, wrapped.Error(), "connection refused")
	require.Equal(t, cause, wrapped.Unwrap())
}

func TestIsCode(t *testing.T) {
	err := NotFound("conversation not found")
	require.True(t, IsCode(err, ErrCodeNotFound))
	require.False(t, IsCode(err, ErrCodeValidation))
	require.False(t, IsCode(fmt.Errorf("plain"), ErrCodeNotFound))
}

func TestGetCodeFromError(t *testing.T) {
	require.Equal(t, ErrCodeCompletionService, GetCodeFromError(CompletionService("boom", nil), ErrCodePersistence))
	require.Equal(t, ErrCodePersistence, GetCodeFromError(fmt.Errorf("plain"), ErrCodePersistence))
}

func TestIllegalTransition(t *testing.T) {
	err := IllegalTransition("COMPLETED", "send_message")
	require.True(t, IsCode(err, ErrCodeIllegalTransition))
	require.Contains(t, err.Error(), "send_message")
	require.Contains(t, err.Error(), "COMPLETED")
}
