package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UsernameKey contextKey = "username"
	RoleKey     contextKey = "role"
	RefIDKey    contextKey = "refID"
)

// AuthMiddleware validates the bearer token, rejects tokens blacklisted at
// logout, and places the login's identity and role in the request context.
func AuthMiddleware(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}
			token := parts[1]

			if redisClient != nil {
				key := fmt.Sprintf("blacklist:%s", token)
				if _, err := redisClient.Get(r.Context(), key).Result(); err == nil {
					http.Error(w, "Token has been revoked", http.StatusUnauthorized)
					return
				}
			}

			claims, err := validateToken(token)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, int64(claims.userID))
			ctx = context.WithValue(ctx, UsernameKey, claims.username)
			ctx = context.WithValue(ctx, RoleKey, claims.role)
			ctx = context.WithValue(ctx, RefIDKey, int64(claims.refID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a subtree to the given roles. Runs after AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(RoleKey).(string)
			if !allowed[role] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type tokenClaims struct {
	userID   float64
	username string
	role     string
	refID    float64
}

func validateToken(tokenString string) (*tokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	parsed := &tokenClaims{}
	parsed.userID, _ = claims["user_id"].(float64)
	parsed.username, _ = claims["username"].(string)
	parsed.role, _ = claims["role"].(string)
	parsed.refID, _ = claims["ref_id"].(float64)
	return parsed, nil
}
