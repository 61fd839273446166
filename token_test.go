package galleria_test

import (
	"testing"
	"time"

	"github.com/serjogas/galleria"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueVerify(t *testing.T) {
	issuer := galleria.NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := galleria.NewTokenIssuer("test-secret", time.Hour)
	other := galleria.NewTokenIssuer("different-secret", time.Hour)

	token, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, galleria.ErrUnauthorized)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := galleria.NewTokenIssuer("test-secret", time.Hour)

	_, err := issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, galleria.ErrUnauthorized)
}

func TestTokenIssuer_Authorize(t *testing.T) {
	issuer := galleria.NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("bob@example.com")
	require.NoError(t, err)

	t.Run("bearer prefix", func(t *testing.T) {
		email, err := issuer.Authorize("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", email)
	})

	t.Run("bare token", func(t *testing.T) {
		email, err := issuer.Authorize(token)
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", email)
	})

	t.Run("missing credential", func(t *testing.T) {
		_, err := issuer.Authorize("")
		assert.ErrorIs(t, err, galleria.ErrUnauthorized)
	})

	t.Run("malformed credential", func(t *testing.T) {
		_, err := issuer.Authorize("Bearer garbage")
		assert.ErrorIs(t, err, galleria.ErrUnauthorized)
	})

	t.Run("debug sentinel simulates failure", func(t *testing.T) {
		_, err := issuer.Authorize(galleria.DebugCredential)
		assert.ErrorIs(t, err, galleria.ErrInternal)

		_, err = issuer.Authorize("Bearer " + galleria.DebugCredential)
		assert.ErrorIs(t, err, galleria.ErrInternal)
	})
}
