package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret", 30*time.Minute)

	token, err := svc.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestValidateExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -1*time.Minute)

	token, err := svc.Issue("alice")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTampered(t *testing.T) {
	svc := NewTokenService("test-secret", 30*time.Minute)

	token, err := svc.Issue("alice")
	require.NoError(t, err)

	// Flip the last byte of the signature.
	b := []byte(token)
	if b[len(b)-1] == 'A' {
		b[len(b)-1] = 'B'
	} else {
		b[len(b)-1] = 'A'
	}

	_, err = svc.Validate(string(b))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-one", 30*time.Minute)
	verifier := NewTokenService("secret-two", 30*time.Minute)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", 30*time.Minute)

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
