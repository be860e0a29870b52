package employee

import (
	"go-leave/internal/authz"
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, provider authz.Provider) {
	employees := r.Group("/employees")
	employees.Use(middleware.AuthMiddleware())
	{
		employees.GET("",
			middleware.RateLimitByUser(2, 10),
			handler.GetAll,
		)
		employees.GET("/:id",
			middleware.RateLimitByUser(2, 10),
			handler.GetByID,
		)
		employees.POST("",
			middleware.RateLimitByUser(1, 5),
			authz.Authorize(provider, authz.CapEmployeeManage),
			handler.Create,
		)
		employees.PUT("/:id",
			middleware.RateLimitByUser(1, 5),
			authz.Authorize(provider, authz.CapEmployeeManage),
			handler.Update,
		)
		employees.DELETE("/:id",
			middleware.RateLimitByUser(0.5, 2),
			authz.Authorize(provider, authz.CapEmployeeManage),
			handler.Delete,
		)
	}
}
