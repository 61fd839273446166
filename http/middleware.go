package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Authorizer makes an authorization decision for a raw bearer credential
// and returns the verified user email.
type Authorizer interface {
	Authorize(credential string) (string, error)
}

type contextKey string

const emailKey contextKey = "user_email"

// EmailFromContext returns the verified email placed by BearerAuth.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// WithEmail returns a context carrying a verified email. Exported for
// handler tests.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// BearerAuth enforces bearer-token authorization on a route group. It fails
// closed on a missing or unverifiable credential and stores the verified
// email in the request context.
func BearerAuth(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := a.Authorize(r.Header.Get("Authorization"))
			if err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithEmail(r.Context(), email)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request with method, path, status and
// duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
