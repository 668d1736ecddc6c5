package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"familytasks/internal/apperrors"
	"familytasks/internal/security"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const ClaimsContextKey ContextKey = "claims"

// Authenticator verifies bearer access tokens
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*security.Claims, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth Authenticator
	log  *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth Authenticator, log *zap.Logger) *Middleware {
	return &Middleware{auth: auth, log: log}
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the token claims to the request context
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondWithError(w, r, m.log, apperrors.Authentication("Authentication required"))
			return
		}

		claims, err := m.auth.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			respondWithError(w, r, m.log, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs each request with zap once it completes
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
			)
		})
	}
}

// GetClaimsFromContext retrieves the token claims from the request context
func GetClaimsFromContext(ctx context.Context) *security.Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	if !ok {
		return nil
	}
	return claims
}

// userID returns the authenticated user's ID, or "" when unauthenticated
func userID(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID()
	}
	return ""
}
