package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/repo"
)

type contextKey string

const userKey contextKey = "user"

// RequireUser validates the bearer token, resolves the account it names,
// and rejects inactive accounts. The resolved account is added to the
// request context.
func RequireUser(secret string, users *repo.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthenticated(w)
				return
			}

			claims, err := auth.ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthenticated(w)
				return
			}

			user, err := users.GetByUsername(r.Context(), claims.Subject)
			if err != nil {
				slog.Error("resolving token subject", "error", err)
				jsonError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				// The account behind a still-valid token may have been
				// deleted.
				unauthenticated(w)
				return
			}
			if !user.IsActive {
				jsonError(w, http.StatusBadRequest, "Inactive user")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperuser gates superuser-only endpoints. Must run after
// RequireUser.
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil {
			unauthenticated(w)
			return
		}
		if !user.IsSuperuser {
			jsonError(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser retrieves the authenticated account from the context.
func CurrentUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey).(*model.User)
	return user
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	jsonError(w, http.StatusUnauthorized, "Could not validate credentials")
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and
// duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}
