package handlers

import (
	"net/http"
	"strings"

	"github.com/IamSpotted/ITSF-Agent/app/services"
	"github.com/gin-gonic/gin"
)

const operatorKey = "operator"

// RequireOperator rejects requests without a valid bearer token.
func RequireOperator(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !jwtService.Enabled() {
			respondError(c, http.StatusForbidden, "operator actions are disabled", nil)
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		operator, err := jwtService.ValidateToken(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		c.Set(operatorKey, operator)
		c.Next()
	}
}

func operatorFrom(c *gin.Context) string {
	return c.GetString(operatorKey)
}
