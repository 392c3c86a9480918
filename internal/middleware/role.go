package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/internal/pkg/response"
)

// RequireRole ensures that the authenticated user has one of the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == "" {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}

// ManagersOnly admits owners and admins.
func ManagersOnly() gin.HandlerFunc {
	return RequireRole("owner", "admin")
}
