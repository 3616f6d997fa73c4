package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The routing/auth layer in front of this core authenticates callers and
// forwards the resolved identity as trusted headers.
const (
	tenantIDKey = contextKey("tenantID")
	userIDKey   = contextKey("userID")

	headerTenantID = "X-Tenant-ID"
	headerUserID   = "X-User-ID"
)

// RequireIdentity rejects requests without a tenant id and stores the
// caller identity in the Gin context for handlers.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(headerTenantID)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-Tenant-ID header required"})
			return
		}
		c.Set(string(tenantIDKey), tenantID)

		if userID := c.GetHeader(headerUserID); userID != "" {
			c.Set(string(userIDKey), userID)
		}
		c.Next()
	}
}

// GetTenantIDFromContext retrieves the tenant id set by RequireIdentity.
func GetTenantIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(tenantIDKey))
	if !exists {
		return "", false
	}
	tenantID, ok := val.(string)
	return tenantID, ok && tenantID != ""
}

// GetUserIDFromContext retrieves the acting user id, if the routing layer
// supplied one. System-triggered calls (schedulers, workers) have none.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(userIDKey))
	if !exists {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok && userID != ""
}
