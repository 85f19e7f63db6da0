package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/example/airdistance/internal/auth"
)

const secret = "test-secret"

func protected(roles ...string) http.Handler {
	return auth.Middleware(secret, nil, roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Subject))
	}))
}

func call(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/distance/DME/VKO", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := auth.Issue(secret, "user-1", "reader", time.Hour, time.Now())
	require.NoError(t, err)

	rec := call(protected("reader"), "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", rec.Body.String())
}

func TestMiddlewareRejections(t *testing.T) {
	valid, err := auth.Issue(secret, "user-1", "reader", time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := auth.Issue(secret, "user-1", "reader", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := auth.Issue("other-secret", "user-1", "reader", time.Hour, time.Now())
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{Role: "reader"}).SignedString([]byte(secret))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		roles  []string
		status int
	}{
		{"missing", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, nil, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", nil, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, nil, http.StatusUnauthorized},
		{"other secret", "Bearer " + foreign, nil, http.StatusUnauthorized},
		{"no expiry", "Bearer " + noExpiry, nil, http.StatusUnauthorized},
		{"wrong role", "Bearer " + valid, []string{"admin"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.status, call(protected(tc.roles...), tc.header).Code)
		})
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := call(auth.Middleware("", nil)(next), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}
