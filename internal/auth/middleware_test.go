package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/auth"
	"github.com/atpstore/backend-atp/internal/common"
)

type stubVerifier struct {
	claims common.Claims
	err    error
	seen   []string
}

func (s *stubVerifier) Verify(_ context.Context, raw string) (common.Claims, error) {
	s.seen = append(s.seen, raw)
	return s.claims, s.err
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	mw := auth.Middleware{Verifier: &stubVerifier{}}
	handler := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	mw := auth.Middleware{Verifier: &stubVerifier{err: errors.New("bad signature")}}
	handler := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthAttachesClaims(t *testing.T) {
	verifier := &stubVerifier{claims: common.Claims{UserID: "user_1", Role: "user"}}
	mw := auth.Middleware{Verifier: verifier}

	var got common.Claims
	handler := mw.RequireAuth(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = common.ClaimsFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer tok-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "user_1", got.UserID)
	require.Equal(t, []string{"tok-abc"}, verifier.seen)
}

func TestRequireRole(t *testing.T) {
	verifier := &stubVerifier{claims: common.Claims{UserID: "user_1", Role: "user"}}
	mw := auth.Middleware{Verifier: verifier}

	var ran bool
	handler := mw.RequireAuth(mw.RequireRole("admin")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		ran = true
	})))

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/u2", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.False(t, ran)

	verifier.claims.Role = "admin"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, ran)
}
