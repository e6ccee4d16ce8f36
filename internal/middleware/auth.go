package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/campusride/internal/auth"
	"github.com/pkordes/campusride/internal/domain"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// ProfileSyncer stores the caller's profile.
type ProfileSyncer interface {
	Sync(ctx context.Context, u domain.User) (domain.User, error)
}

type (
	userKey   struct{}
	holderKey struct{}
)

// userHolder lets an outer middleware see who a request was authenticated as.
type userHolder struct{ id string }

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// WithUser returns a copy of ctx carrying u as the authenticated caller.
func WithUser(ctx context.Context, u domain.User) context.Context {
	if h, ok := ctx.Value(holderKey{}).(*userHolder); ok {
		h.id = u.ID
	}
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the caller stored by RequireAuth.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(domain.User)
	return u, ok
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user in the request context.
//
// WebSocket handshakes cannot set headers from a browser, so an upgrade
// request may carry the token in the access_token query parameter instead.
func RequireAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", auth.ErrMissingToken.Error())
				return
			}
			claims, err := v.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", auth.ErrInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.User())))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// SyncProfile refreshes the stored profile of the authenticated caller so
// roster entries and driver emails use current names. A failed sync is
// logged and the request continues. Must run after RequireAuth.
func SyncProfile(s ProfileSyncer, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, ok := UserFromContext(r.Context()); ok {
				if _, err := s.Sync(r.Context(), u); err != nil && !errors.Is(err, context.Canceled) {
					log.WarnContext(r.Context(), "profile sync failed", "user_id", u.ID, "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
