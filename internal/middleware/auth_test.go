package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/utils"
)

var secret = []byte("test-secret")

func signed(t *testing.T, key []byte, expires time.Time) string {
	t.Helper()
	claims := &models.Claims{
		UserID:         7,
		Username:       "admin",
		StandardClaims: jwt.StandardClaims{ExpiresAt: expires.Unix()},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func protected() http.Handler {
	return AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := utils.GetUserIDFromContext(r.Context())
		if err != nil || id != 7 || utils.GetUsernameFromContext(r.Context()) != "admin" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAuthMiddleware(t *testing.T) {
	valid := signed(t, secret, time.Now().Add(time.Hour))

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusNoContent},
		{"lowercase scheme", "bearer " + valid, "", http.StatusNoContent},
		{"query token", "", "?token=" + valid, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"short header", "Bear", "", http.StatusUnauthorized},
		{"wrong key", "Bearer " + signed(t, []byte("other"), time.Now().Add(time.Hour)), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, secret, time.Now().Add(-time.Minute)), "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protected().ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
