// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/permission"
	"github.com/agentdesk/admin-platform/pkg/metrics"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// PrincipalKey is the context key for the authenticated principal.
	PrincipalKey ContextKey = "principal"
)

// Claims are the JWT claims carried by platform tokens. Subject holds the
// user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IssueToken signs a token for the user.
func IssueToken(secret string, user *model.User, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
		Role: string(user.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Auth creates JWT authentication middleware. Requests without a valid
// bearer token are rejected with 401.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				metrics.AuthFailuresTotal.WithLabelValues("missing_header").Inc()
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.AuthFailuresTotal.WithLabelValues("bad_header").Inc()
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
				unauthorized(w, "invalid token")
				return
			}

			userID, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil || userID == 0 {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_subject").Inc()
				unauthorized(w, "invalid token")
				return
			}

			p := permission.Principal{ID: uint(userID), Role: model.Role(claims.Role)}
			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":"` + msg + `"}`))
}

// GetPrincipal returns the authenticated principal from the context. The
// second result is false on unauthenticated requests.
func GetPrincipal(ctx context.Context) (permission.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(permission.Principal)
	return p, ok
}

// RequireAdmin rejects non-admin principals with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		if !ok || !permission.IsAdmin(p) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"success":false,"error":"admin role required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
