package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"coconut-erp/internal/apperror"
)

// Roles checked by RequireRole.
const (
	RoleAdmin     = "admin"
	RoleFinance   = "financeiro"
	RoleQuality   = "qualidade"
	RoleWarehouse = "almoxarifado"
)

type authClaimsKey struct{}

// AuthClaims holds the caller identity extracted from the JWT.
type AuthClaims struct {
	Subject string
	Role    string
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// actor returns given, or the authenticated subject when given is empty.
func actor(r *http.Request, given string) string {
	if given != "" {
		return given
	}
	if c := authFromContext(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

// jwtClaims is the JWT payload used for signing and parsing.
type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject with the given role.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// bearerToken reads the token from "Authorization: Bearer ..." or the auth_token cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth validates the caller's JWT and injects AuthClaims into the request context.
// With no secret configured, authentication is disabled.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.jwtSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			h.writeError(w, r, apperror.MissingToken())
			return
		}

		claims := &jwtClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.jwtSecret), nil
		})
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			h.writeError(w, r, apperror.TokenExpired())
			return
		case err != nil:
			h.writeError(w, r, apperror.InvalidToken())
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, &AuthClaims{
			Subject: claims.Subject,
			Role:    claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets through callers whose role is admin or one of roles.
// It is a no-op when authentication is disabled.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.jwtSecret == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims := authFromContext(r.Context())
			if claims == nil {
				h.writeError(w, r, apperror.InvalidSession())
				return
			}
			if claims.Role == RoleAdmin || contains(roles, claims.Role) {
				next.ServeHTTP(w, r)
				return
			}
			h.writeError(w, r, apperror.RoleRequired(strings.Join(roles, "|"), claims.Role))
		})
	}
}

// me handles GET /api/auth/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	if claims == nil {
		h.writeError(w, r, apperror.InvalidSession())
		return
	}
	writeJSON(w, map[string]string{"subject": claims.Subject, "role": claims.Role})
}
