// Package middleware carries the gin middleware shared by all routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/prepstack/scoring-service/internal/models"
	"github.com/prepstack/scoring-service/internal/utils"
)

// TokenParser verifies a bearer token and returns its claims.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// AuthMiddleware authenticates requests against the Casdoor identity
// provider and exposes user_id / user_role on the gin context.
type AuthMiddleware struct {
	parser TokenParser
	logger utils.Logger
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

func NewAuthMiddleware(cfg CasdoorConfig, logger utils.Logger) *AuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &AuthMiddleware{parser: client, logger: logger}
}

// NewAuthMiddlewareWithParser is used by tests to inject a fake parser.
func NewAuthMiddlewareWithParser(parser TokenParser, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{parser: parser, logger: logger}
}

// Authenticate validates the Authorization header and stores the caller's
// identity on the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := m.parser.ParseJwtToken(token)
		if err != nil {
			m.logger.Warn("Token verification failed", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})
			return
		}

		role := models.RoleStudent
		if claims.User.IsAdmin {
			role = models.RoleAdmin
		}

		c.Set("user_id", claims.User.Id)
		c.Set("user_name", claims.User.DisplayName)
		c.Set("user_email", claims.User.Email)
		c.Set("user_role", role)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists || role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
