package leave

import (
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware())
	{
		leaves.POST("",
			middleware.RateLimitByUser(1, 5),
			middleware.Idempotency(rdb),
			handler.Submit,
		)
		leaves.GET("", middleware.RateLimitByUser(2, 10), handler.List)
		leaves.GET("/mine", middleware.RateLimitByUser(2, 10), handler.ListMine)
		leaves.GET("/approvals", middleware.RateLimitByUser(2, 10), handler.ListApprovals)
		leaves.GET("/balances", middleware.RateLimitByUser(2, 10), handler.GetBalances)
		leaves.GET("/:id", middleware.RateLimitByUser(2, 10), handler.GetByID)

		leaves.POST("/:id/approve", middleware.RateLimitByUser(1, 5), handler.Approve)
		leaves.POST("/:id/reject", middleware.RateLimitByUser(1, 5), handler.Reject)
		leaves.POST("/:id/escalate", middleware.RateLimitByUser(1, 5), handler.Escalate)
		leaves.POST("/:id/cancel", middleware.RateLimitByUser(1, 5), handler.Cancel)
	}
}
