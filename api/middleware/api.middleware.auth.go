// FilePath: api/middleware/api.middleware.auth.go
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/greenmind-iot/hub/internal/auth"
	"github.com/greenmind-iot/hub/internal/errors"
	"github.com/greenmind-iot/hub/internal/hubservice"
	"github.com/greenmind-iot/hub/internal/token"
)

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// BearerMiddleware authenticates requests with signed bearer tokens and
// throttles clients that keep failing.
type BearerMiddleware struct {
	verifier TokenVerifier
	limiter  auth.FailureLimiter
}

// NewBearerMiddleware creates a new bearer-token middleware.
func NewBearerMiddleware(verifier TokenVerifier, limiter auth.FailureLimiter) *BearerMiddleware {
	return &BearerMiddleware{
		verifier: verifier,
		limiter:  limiter,
	}
}

// Authenticate validates the token and adds the device identity to the
// request context. Blocked clients are rejected before any token work;
// an expired token is reported as expired without counting as a failure,
// a forged or malformed one counts against the client's address.
func (m *BearerMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientAddr := ClientIP(r)

		if m.limiter.IsBlocked(r.Context(), clientAddr) {
			handleError(w, errors.NewRateLimitError("too many failed attempts", nil))
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}

		subject, err := m.verifier.Verify(tokenString)
		if err != nil {
			if err == token.ErrExpired {
				handleError(w, errors.NewAuthExpiredError("token expired", err))
				return
			}
			m.limiter.RecordFailure(r.Context(), clientAddr)
			handleError(w, errors.NewAuthError("invalid token", err))
			return
		}

		m.limiter.Reset(r.Context(), clientAddr)

		ctx := hubservice.WithIdentity(r.Context(), subject, []string{"device"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles middleware ensures the caller has required roles
func (m *BearerMiddleware) RequireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasRequiredRoles(hubservice.GetUserRoles(r.Context()), roles) {
				handleError(w, errors.NewAuthorizationError("insufficient permissions", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions

// ClientIP resolves the caller's address, honoring proxy headers before
// falling back to the socket peer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func extractToken(r *http.Request) string {
	bearerToken := r.Header.Get("Authorization")
	parts := strings.Split(bearerToken, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func hasRequiredRoles(userRoles, requiredRoles []string) bool {
	if len(requiredRoles) == 0 {
		return true
	}

	roleMap := make(map[string]bool)
	for _, role := range userRoles {
		roleMap[role] = true
	}

	for _, required := range requiredRoles {
		if required == "*" {
			return true
		}
		if !roleMap[required] {
			return false
		}
	}
	return true
}

func handleError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
