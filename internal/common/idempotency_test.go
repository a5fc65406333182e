package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdemMiddlewareRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	idem := Idem{R: client, TTL: time.Minute}
	hits := 0
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("Idempotency-Key", "abc-123")

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusCreated, rr1.Code)

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusConflict, rr2.Code)
	require.Contains(t, rr2.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, hits)
}

func TestIdemMiddlewareScopedByPath(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	idem := Idem{R: client, TTL: time.Minute}
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRequest(http.MethodPost, "/carts", nil)
	first.Header.Set("Idempotency-Key", "shared")
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, first)
	require.Equal(t, http.StatusCreated, rr1.Code)

	// same key on a different endpoint is a fresh request
	second := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	second.Header.Set("Idempotency-Key", "shared")
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, second)
	require.Equal(t, http.StatusCreated, rr2.Code)
}

func TestIdemMiddlewarePassThroughWithoutKey(t *testing.T) {
	idem := Idem{TTL: time.Minute}
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/carts", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}
