package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fanarena/internal/domain"
	"fanarena/pkg/errors"
	"fanarena/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for user information in context
	UserContextKey ContextKey = "user"
)

// sessionClaims is the token payload issued by the session collaborator
type sessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth creates an authentication middleware. It validates the bearer token
// and stores the actor in the request context.
func Auth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, appErr := userFromRequest(r, secret)
			if appErr != nil {
				log.WithError(appErr).Debug("Authentication failed")
				writeErrorResponse(w, appErr)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth validates a token when one is present and continues
// anonymously otherwise.
func OptionalAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, appErr := userFromRequest(r, secret)
			if appErr != nil {
				log.WithError(appErr).Debug("Authentication failed")
				writeErrorResponse(w, appErr)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireModerator rejects actors without the moderator role. Must run
// after Auth.
func RequireModerator(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if !user.IsModerator() {
				writeErrorResponse(w, errors.NewAccessDeniedError("moderator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser extracts the authenticated actor from the context, nil when
// anonymous.
func GetUser(ctx context.Context) *domain.AuthUser {
	user, _ := ctx.Value(UserContextKey).(*domain.AuthUser)
	return user
}

func userFromRequest(r *http.Request, secret string) (*domain.AuthUser, *errors.AppError) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, unauthorized("Authorization header is required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, unauthorized("Invalid authorization header format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return nil, unauthorized("Token is required")
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, unauthorized("Invalid or expired token")
	}

	role := domain.Role(claims.Role)
	if role != domain.RoleModerator {
		role = domain.RoleUser
	}
	return &domain.AuthUser{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     role,
	}, nil
}

func unauthorized(message string) *errors.AppError {
	return &errors.AppError{
		Kind:       errors.KindAccessDenied,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	timestamp := time.Now().UTC().Format(time.RFC3339)
	w.Write([]byte(`{"error":{"kind":"` + string(appErr.Kind) + `","message":"` + appErr.Message + `","timestamp":"` + timestamp + `"}}`))
}
