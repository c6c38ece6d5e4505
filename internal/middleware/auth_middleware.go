package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/util"
)

// Context keys for the authenticated caller
const (
	IdentityKey = "identity"
	ClaimsKey   = "session_claims"
)

// RevocationChecker reports whether a session was signed out before it expired.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthMiddleware struct {
	sessionSecret string
	cookieName    string
	revocations   RevocationChecker
}

// NewAuthMiddleware builds the session middleware. revocations may be nil when Redis is disabled.
func NewAuthMiddleware(sessionSecret, cookieName string, revocations RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{
		sessionSecret: sessionSecret,
		cookieName:    cookieName,
		revocations:   revocations,
	}
}

var errMalformedHeader = errors.New("malformed authorization header")

// extractToken reads the session cookie first, then a Bearer header, then the token query
// parameter (browsers cannot set headers on websocket upgrades).
func (m *AuthMiddleware) extractToken(c *gin.Context) (string, error) {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
		return cookie, nil
	}
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errMalformedHeader
		}
		return parts[1], nil
	}
	return c.Query("token"), nil
}

func (m *AuthMiddleware) resolve(c *gin.Context, token string) (*util.SessionClaims, error) {
	claims, err := util.ValidateSessionToken(token, m.sessionSecret)
	if err != nil {
		return nil, err
	}
	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			// an unreachable Redis must not lock everybody out
			GetLoggerFromContext(c).Error("Failed to check session revocation", err, map[string]interface{}{
				"principal_id": claims.UserID,
			})
		} else if revoked {
			return nil, service.ErrSessionRevoked
		}
	}
	return claims, nil
}

func setIdentity(c *gin.Context, claims *util.SessionClaims) {
	c.Set(ClaimsKey, claims)
	c.Set(IdentityKey, service.Identity{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Kind:  claims.Kind,
	})
}

// Authenticate requires a valid session.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, err := m.extractToken(c)
		if err != nil {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid authorization header")
			c.Abort()
			return
		}
		if token == "" {
			log.Warn("Missing session", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		claims, err := m.resolve(c, token)
		if err != nil {
			log.Warn("Session validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			switch {
			case errors.Is(err, util.ErrExpiredToken):
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Session has expired")
			case errors.Is(err, service.ErrSessionRevoked):
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenRevoked, "Session has been signed out")
			default:
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid session")
			}
			c.Abort()
			return
		}

		setIdentity(c, claims)

		log.Debug("Session authenticated", map[string]interface{}{
			"principal_id": claims.UserID,
			"kind":         claims.Kind,
		})

		c.Next()
	}
}

// OptionalAuthenticate sets the identity when a valid session is present and continues as a
// guest otherwise.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, err := m.extractToken(c)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := m.resolve(c, token)
		if err != nil {
			log.Debug("Session validation failed - continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// RequireEmployee must run after Authenticate.
func (m *AuthMiddleware) RequireEmployee() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		identity, ok := GetIdentity(c)
		if !ok {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !identity.IsEmployee() {
			log.Warn("Employee session required", map[string]interface{}{
				"principal_id": identity.ID,
				"kind":         identity.Kind,
				"path":         c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzEmployeeOnly, "Employee access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireUser must run after Authenticate.
func (m *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !identity.IsUser() {
			apperrors.Forbidden(c, "A shopper session is required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetIdentity extracts the caller from context
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return service.Identity{}, false
	}
	identity, ok := value.(service.Identity)
	return identity, ok
}

// GetSessionClaims extracts the raw session claims from context
func GetSessionClaims(c *gin.Context) (*util.SessionClaims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*util.SessionClaims)
	return claims, ok
}
