package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// OwnerIDHeader carries the authenticated owner's ID. An upstream
	// gateway authenticates the caller; this service only scopes data by it.
	OwnerIDHeader = "X-Owner-ID"

	// OwnerIDKey is the key used to store the owner ID in the context
	OwnerIDKey = "owner_id"
)

// OwnerScope middleware requires a valid owner ID on every request and makes
// it available to handlers. Requests without one are rejected before any
// handler runs.
func OwnerScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OwnerIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing " + OwnerIDHeader + " header",
				},
			})
			return
		}

		ownerID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid " + OwnerIDHeader + " header",
				},
			})
			return
		}

		c.Set(OwnerIDKey, ownerID)
		c.Next()
	}
}

// GetOwnerID retrieves the owner ID stored by OwnerScope
func GetOwnerID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(OwnerIDKey); exists {
		if ownerID, ok := v.(uuid.UUID); ok {
			return ownerID, true
		}
	}
	return uuid.Nil, false
}
