package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const userIDKey ctxKey = iota

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user set by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Authenticator resolves an access token to a user ID.
type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// bearerToken reads the Authorization header and, when allowQuery is set,
// falls back to the token query parameter browsers use for WebSockets.
func bearerToken(r *http.Request, allowQuery bool) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if strings.HasPrefix(h, common.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

func requireAuth(a Authenticator, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r, allowQuery)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, contract.CodeUnauthorized, "missing access token")
				return
			}
			userID, err := a.Authenticate(tok)
			if err != nil {
				status, code, msg := statusFor(err)
				writeError(w, status, code, msg)
				return
			}
			ctx := logging.ContextWith(withUserID(r.Context(), userID), "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs one line per request through the application logger.
func requestLogger(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			ctx := logging.ContextWith(r.Context(), "request_id", middleware.GetReqID(r.Context()))
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			}
			if status >= http.StatusInternalServerError {
				l.Error(ctx, "request", args...)
				return
			}
			l.Info(ctx, "request", args...)
		})
	}
}
