package auth

import (
	"errors"
	"strings"

	"fitstudio/internal/api"
	"fitstudio/internal/apperr"
	"fitstudio/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

var (
	ErrHeaderRequired   = apperr.New(apperr.ErrAuthentication, "authorization header required")
	ErrHeaderFormat     = apperr.New(apperr.ErrAuthentication, "invalid authorization header format")
	ErrEmptyToken       = apperr.New(apperr.ErrAuthentication, "token is empty")
	ErrExpired          = apperr.New(apperr.ErrAuthentication, "token expired")
	ErrMalformed        = apperr.New(apperr.ErrAuthentication, "invalid or malformed token")
	ErrAccessRequired   = apperr.New(apperr.ErrAuthentication, "access token required")
	ErrUnknownAccount   = apperr.New(apperr.ErrAuthentication, "account not found")
	ErrRoleMissing      = apperr.New(apperr.ErrAuthentication, "user role not found")
	ErrInsufficientRole = apperr.New(apperr.ErrAuthorization, "insufficient permissions")
)

// AuthMiddleware verifies the bearer token and attaches the caller identity.
// Tokens without a role claim are resolved through resolver when one is given.
func AuthMiddleware(accessTokenSecret string, resolver RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, ErrHeaderRequired)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			abort(c, ErrHeaderFormat)
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(c, ErrEmptyToken)
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				abort(c, ErrExpired)
			} else {
				abort(c, ErrMalformed)
			}
			return
		}

		if claims.TokenType != TokenTypeAccess {
			abort(c, ErrAccessRequired)
			return
		}

		role, ok := ParseRole(claims.Role)
		if !ok {
			role, err = resolveLegacyRole(c, resolver, claims)
			if err != nil {
				abort(c, err)
				return
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, role)

		c.Next()
	}
}

// resolveLegacyRole handles tokens minted before the role claim existed: the
// stored account is the only authority for its role.
func resolveLegacyRole(c *gin.Context, resolver RoleResolver, claims *JWTClaims) (Role, error) {
	if resolver == nil {
		return "", ErrMalformed
	}

	role, err := resolver.ResolveRole(c.Request.Context(), claims.UserID)
	if err != nil {
		logger.WithError(err).Warn("legacy token role lookup failed", "user_id", claims.UserID)
		return "", ErrUnknownAccount
	}

	logger.Debug("resolved role for legacy token", "user_id", claims.UserID, "role", role)
	return role, nil
}

func RequireRole(allowed ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ctxUserRole)
		if !exists {
			abort(c, ErrRoleMissing)
			return
		}

		role, ok := value.(Role)
		if !ok {
			abort(c, ErrRoleMissing)
			return
		}

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}

		abort(c, ErrInsufficientRole)
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

// GetIdentity returns the caller attached by AuthMiddleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Identity{}, false
	}

	role, ok := c.Get(ctxUserRole)
	if !ok {
		return Identity{}, false
	}
	r, ok := role.(Role)
	if !ok {
		return Identity{}, false
	}

	return Identity{ID: id, Email: c.GetString(ctxUserEmail), Role: r}, true
}

// SetIdentity attaches an identity to the context as AuthMiddleware would.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ctxUserID, id.ID)
	c.Set(ctxUserEmail, id.Email)
	c.Set(ctxUserRole, id.Role)
}

func abort(c *gin.Context, err error) {
	api.RespondError(c, err)
	c.Abort()
}
