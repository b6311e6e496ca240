package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRoomCode(t *testing.T) {
	require.NoError(t, ValidateRoomCode("ABCD"))
	require.NoError(t, ValidateRoomCode("room1234"))
	require.Error(t, ValidateRoomCode("abc"), "too short")
	require.Error(t, ValidateRoomCode(strings.Repeat("a", 13)), "too long")
	require.Error(t, ValidateRoomCode("bad-code!"), "invalid characters")
}

func TestValidateChatText(t *testing.T) {
	require.NoError(t, ValidateChatText("gg"))
	require.Error(t, ValidateChatText("   "), "blank text")
	require.Error(t, ValidateChatText(strings.Repeat("x", 281)), "over length bound")
}
