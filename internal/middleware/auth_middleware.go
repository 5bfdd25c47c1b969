package middleware

import (
	"net/http"
	"strings"

	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and sets user_id and user_type on
// the request context.
func AuthRequired(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secretKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextUserType, claims.UserType)

		c.Next()
	}
}

// AgentRequired ensures the caller is a safety agent.
func AgentRequired() gin.HandlerFunc {
	return requireUserType(utils.UserTypeAgent)
}

// AdminRequired ensures the caller is an admin.
func AdminRequired() gin.HandlerFunc {
	return requireUserType(utils.UserTypeAdmin)
}

func requireUserType(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, exists := c.Get(utils.ContextUserType)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User type not found"})
			c.Abort()
			return
		}

		userTypeStr, ok := userType.(string)
		if !ok || (userTypeStr != required && userTypeStr != utils.UserTypeAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": required + " access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
