package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/campusride/internal/auth"
	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/middleware"
)

const testSecret = "middleware-test-secret"

// whoAmI echoes the authenticated user id, or 500 if none was stored.
var whoAmI = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, u.ID)
})

func token(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := auth.NewJWTManager(testSecret, time.Hour).Generate(u)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth_ValidBearer(t *testing.T) {
	h := middleware.RequireAuth(auth.NewJWTManager(testSecret, time.Hour))(whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, domain.User{ID: "u1", Name: "Ada"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestRequireAuth_Rejections(t *testing.T) {
	other := auth.NewJWTManager("some-other-secret", time.Hour)
	forged, err := other.Generate(domain.User{ID: "u1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + forged},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := middleware.RequireAuth(auth.NewJWTManager(testSecret, time.Hour))(whoAmI)
			req := httptest.NewRequest(http.MethodGet, "/groups", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
		})
	}
}

func TestRequireAuth_QueryTokenOnlyForWebSocket(t *testing.T) {
	h := middleware.RequireAuth(auth.NewJWTManager(testSecret, time.Hour))(whoAmI)
	tok := token(t, domain.User{ID: "u2"})

	plain := httptest.NewRequest(http.MethodGet, "/groups?access_token="+tok, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, plain)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	upgrade := httptest.NewRequest(http.MethodGet, "/groups/g/rides/r/live?access_token="+tok, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, upgrade)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", rec.Body.String())
}

type syncerFunc func(ctx context.Context, u domain.User) (domain.User, error)

func (f syncerFunc) Sync(ctx context.Context, u domain.User) (domain.User, error) { return f(ctx, u) }

func TestSyncProfile_StoresCallerAndContinuesOnFailure(t *testing.T) {
	var synced []string
	s := syncerFunc(func(_ context.Context, u domain.User) (domain.User, error) {
		synced = append(synced, u.ID)
		return u, errors.New("db down")
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := middleware.SyncProfile(s, log)(whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), domain.User{ID: "u3"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u3"}, synced)
}

func TestSyncProfile_AnonymousRequestSkipsSync(t *testing.T) {
	called := false
	s := syncerFunc(func(_ context.Context, u domain.User) (domain.User, error) {
		called = true
		return u, nil
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := middleware.SyncProfile(s, slog.New(slog.NewTextHandler(io.Discard, nil)))(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
}
