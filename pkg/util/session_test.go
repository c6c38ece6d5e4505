package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-session-testing"

func TestGenerateSessionToken(t *testing.T) {
	token, claims, err := GenerateSessionToken(7, "Jane", "jane@example.com", KindUser, testSecret, time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, token)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Before(claims.ExpiresAt.Time))
}

func TestValidateSessionToken(t *testing.T) {
	token, _, err := GenerateSessionToken(42, "Jane", "jane@example.com", KindEmployee, testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Valid token", token: token, secret: testSecret},
		{name: "Wrong secret", token: token, secret: "wrong-secret", wantErr: ErrInvalidToken},
		{name: "Garbage", token: "invalid.token.format", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateSessionToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(42), claims.UserID)
			assert.Equal(t, "Jane", claims.Name)
			assert.Equal(t, KindEmployee, claims.Kind)
		})
	}
}

func TestValidateSessionToken_Expired(t *testing.T) {
	token, _, err := GenerateSessionToken(1, "Jane", "jane@example.com", KindUser, testSecret, -time.Minute)
	require.NoError(t, err)

	claims, err := ValidateSessionToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestValidateSessionToken_UnknownKind(t *testing.T) {
	token, _, err := GenerateSessionToken(1, "Jane", "jane@example.com", "robot", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateSessionToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
