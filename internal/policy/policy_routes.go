package policy

import (
	"go-leave/internal/authz"
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, provider authz.Provider) {
	manage := authz.Authorize(provider, authz.CapPolicyManage)

	types := r.Group("/leave-types")
	types.Use(middleware.AuthMiddleware())
	{
		types.GET("", middleware.RateLimitByUser(2, 10), handler.ListLeaveTypes)
		types.POST("", middleware.RateLimitByUser(1, 5), manage, handler.CreateLeaveType)
		types.PUT("/:id", middleware.RateLimitByUser(1, 5), manage, handler.UpdateLeaveType)
		types.DELETE("/:id", middleware.RateLimitByUser(0.5, 2), manage, handler.DeactivateLeaveType)
	}

	rules := r.Group("/leave-rules")
	rules.Use(middleware.AuthMiddleware())
	{
		rules.GET("", middleware.RateLimitByUser(2, 10), handler.ListLeaveRules)
		rules.POST("", middleware.RateLimitByUser(1, 5), manage, handler.CreateLeaveRule)
		rules.PUT("/:id", middleware.RateLimitByUser(1, 5), manage, handler.UpdateLeaveRule)
		rules.DELETE("/:id", middleware.RateLimitByUser(0.5, 2), manage, handler.DeleteLeaveRule)
	}

	policies := r.Group("/constraint-policy")
	policies.Use(middleware.AuthMiddleware())
	{
		policies.GET("", middleware.RateLimitByUser(2, 10), handler.GetActivePolicy)
		policies.PUT("", middleware.RateLimitByUser(0.5, 2), manage, handler.ReplacePolicy)
	}
}
