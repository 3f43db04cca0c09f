package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/http/response"
)

// sessionCookieName is the HttpOnly cookie carrying the session token
// for browser clients. API clients send a Bearer header instead.
const sessionCookieName = "docmark_session"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyUser contextKey = "user"

// requireAuth validates the session token from the Authorization header
// or the session cookie and attaches the user to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(sessionCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			response.Unauthorized(w, "Missing session token", s.logger)
			return
		}

		user, err := s.auth.VerifySession(r.Context(), token)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired session", s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an Authorization header.
// Returns empty string if the header is missing or malformed.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// currentUser extracts the authenticated user from request context.
// Returns nil if not authenticated.
func currentUser(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(contextKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}

// syncRateLimit rejects sync requests beyond the per-user allowance.
// Folder syncs fan out into many provider calls, so the inbound limit
// is tighter than the outbound one.
func (s *Server) syncRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r.Context())
		if user == nil {
			response.Unauthorized(w, "Authentication required", s.logger)
			return
		}
		if !s.syncLimiter.Allow(user.ID) {
			response.Error(w, http.StatusTooManyRequests, "Too many sync requests", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}
