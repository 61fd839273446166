package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serjogas/galleria"
	galleriahttp "github.com/serjogas/galleria/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuth(t *testing.T) {
	issuer := galleria.NewTokenIssuer("test-secret", time.Hour)

	var gotEmail string
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail, gotOK = galleriahttp.EmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := galleriahttp.BearerAuth(issuer)(next)

	call := func(authorization string) *httptest.ResponseRecorder {
		gotEmail, gotOK = "", false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token passes email through", func(t *testing.T) {
		token, err := issuer.Issue("alice@example.com")
		require.NoError(t, err)

		rec := call("Bearer " + token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, gotOK)
		assert.Equal(t, "alice@example.com", gotEmail)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := call("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, gotOK)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := call("Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, gotOK)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := galleria.NewTokenIssuer("other-secret", time.Hour)
		token, err := other.Issue("alice@example.com")
		require.NoError(t, err)

		rec := call("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("debug credential simulates server failure", func(t *testing.T) {
		rec := call("Bearer " + galleria.DebugCredential)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, gotOK)
	})
}

func TestEmailFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := galleriahttp.EmailFromContext(req.Context())
	assert.False(t, ok)

	_, ok = galleriahttp.EmailFromContext(galleriahttp.WithEmail(req.Context(), ""))
	assert.False(t, ok)
}
