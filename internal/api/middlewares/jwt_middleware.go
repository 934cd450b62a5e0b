package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

// APIKeyUserID is the identity attached to requests authenticated by API key.
const APIKeyUserID = "api-key"

// UserIDFromContext returns the authenticated user id, or "" for
// anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithUserID attaches id to ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// JWTMiddleware validates the Authorization header and attaches user_id to the request context.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userFromBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func userFromBearer(auth, secret string) (string, error) {
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", fmt.Errorf("missing or invalid token")
	}
	tokenStr := strings.TrimPrefix(auth, "Bearer ")
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return userID, nil
}

// Authenticate accepts a bearer JWT signed with secret or an X-API-Key
// matching the bcrypt apiKeyHash. With neither configured every request
// passes through anonymously.
func Authenticate(secret, apiKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" && apiKeyHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" && apiKeyHash != "" {
				if bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(key)) != nil {
					http.Error(w, "invalid api key", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), APIKeyUserID)))
				return
			}
			if secret == "" {
				http.Error(w, "missing api key", http.StatusUnauthorized)
				return
			}
			userID, err := userFromBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
