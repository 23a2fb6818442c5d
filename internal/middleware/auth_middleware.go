package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survey-api/pkg/auth"
	"github.com/yourusername/survey-api/pkg/logger"
)

// Context keys set by RequireAuth
const (
	ContextOwnerID = "owner_id"
	ContextClaims  = "claims"
)

const revocationCheckTimeout = 2 * time.Second

// TokenParser verifies access tokens
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// RevocationChecker reports revoked token ids
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware authenticates owner routes
type AuthMiddleware struct {
	tokens  TokenParser
	revoked RevocationChecker
	log     *logger.Logger
}

// NewAuthMiddleware creates the middleware
func NewAuthMiddleware(tokens TokenParser, revoked RevocationChecker, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revoked: revoked, log: log.With("component", "AuthMiddleware")}
}

// BearerToken extracts the token from "Authorization: Bearer <token>"
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireAuth checks the bearer token and its revocation state
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := m.tokens.ParseToken(token)
		if err != nil {
			m.log.Debug("token rejected", "error", err)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		if m.revoked != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), revocationCheckTimeout)
			revoked, err := m.revoked.IsTokenRevoked(ctx, claims.TokenID())
			cancel()
			if err != nil {
				m.log.Error("revocation check failed", "error", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Session store unavailable"})
				return
			}
			if revoked {
				abortUnauthorized(c, "Session has ended")
				return
			}
		}

		c.Set(ContextOwnerID, claims.OwnerID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// OwnerID returns the owner set by RequireAuth
func OwnerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextOwnerID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Claims returns the token claims set by RequireAuth
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}
