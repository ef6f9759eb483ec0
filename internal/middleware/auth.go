package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medledger/chain-api/internal/handler"
	"github.com/medledger/chain-api/pkg/auth"
)

const (
	ContextCallerID   = "caller_id"
	ContextCallerRole = "caller_role"
)

type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the bearer token and sets the caller identity in
// context. Contract operations downstream use that identity as the caller;
// it cannot be supplied in a request body.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextCallerID, claims.Subject)
		c.Set(ContextCallerRole, claims.Role)
		c.Next()
	}
}

// CallerID returns the authenticated caller identity set by Authenticate.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextCallerID)
}
