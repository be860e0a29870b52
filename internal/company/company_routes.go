package company

import (
	"go-leave/internal/authz"
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, provider authz.Provider) {
	companies := r.Group("/company")
	companies.Use(middleware.AuthMiddleware())
	{
		companies.GET("/settings",
			middleware.RateLimitByUser(2, 10),
			handler.GetSettings,
		)
		companies.PUT("/settings",
			middleware.RateLimitByUser(0.5, 2),
			authz.Authorize(provider, authz.CapCompanyManage),
			handler.UpdateSettings,
		)
		companies.GET("/holidays",
			middleware.RateLimitByUser(2, 10),
			handler.ListHolidays,
		)
		companies.POST("/holidays",
			middleware.RateLimitByUser(1, 5),
			authz.Authorize(provider, authz.CapCompanyManage),
			handler.AddHoliday,
		)
		companies.DELETE("/holidays/:id",
			middleware.RateLimitByUser(0.5, 2),
			authz.Authorize(provider, authz.CapCompanyManage),
			handler.RemoveHoliday,
		)
	}
}
