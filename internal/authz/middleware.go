package authz

import (
	"net/http"

	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// Authorize guards a route behind a capability check. Expects the auth
// middleware to have set employee_id and company_id on the context.
func Authorize(provider Provider, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetString("employee_id")
		companyID := c.GetString("company_id")
		if actorID == "" || companyID == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing identity claims", nil)
			c.Abort()
			return
		}

		allowed, err := provider.HasCapability(c.Request.Context(), actorID, companyID, capability)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization check failed", nil)
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient capability", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
