package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

func token(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	})
}

func serve(h http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	h := JWTMiddleware(secret)(echoUser())
	valid := token(t, jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(secret))

	rec := serve(h, map[string]string{"Authorization": "Bearer " + valid})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", rec.Body.String())

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + token(t, jwt.MapClaims{"user_id": "u"}, jwt.SigningMethodHS256, []byte("other")),
		"expired":      "Bearer " + token(t, jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Hour).Unix()}, jwt.SigningMethodHS256, []byte(secret)),
		"no user_id":   "Bearer " + token(t, jwt.MapClaims{"sub": "u"}, jwt.SigningMethodHS256, []byte(secret)),
		"wrong alg":    "Bearer " + token(t, jwt.MapClaims{"user_id": "u"}, jwt.SigningMethodHS384, []byte(secret)),
	}
	for name, header := range cases {
		rec := serve(h, map[string]string{"Authorization": header})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k3y"), bcrypt.MinCost)
	require.NoError(t, err)
	valid := token(t, jwt.MapClaims{"user_id": "u-9"}, jwt.SigningMethodHS256, []byte(secret))

	open := Authenticate("", "")(echoUser())
	rec := serve(open, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	both := Authenticate(secret, string(hash))(echoUser())
	rec = serve(both, map[string]string{"X-API-Key": "k3y"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, APIKeyUserID, rec.Body.String())

	rec = serve(both, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(both, map[string]string{"Authorization": "Bearer " + valid})
	assert.Equal(t, "u-9", rec.Body.String())

	rec = serve(both, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	keyOnly := Authenticate("", string(hash))(echoUser())
	rec = serve(keyOnly, map[string]string{"Authorization": "Bearer " + valid})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
