// internal/auth/auth_test.go
package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	svc := New("test-secret")
	userID := uuid.New()

	token, err := svc.Mint(userID, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	gotID, gotName, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "alice", gotName)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc := New("test-secret")

	_, _, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret.
	other := New("other-secret")
	token, err := other.Mint(uuid.New(), "mallory")
	require.NoError(t, err)
	_, _, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
