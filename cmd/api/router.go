package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trailventure-backend/internal/shared/middleware"
	"trailventure-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupPromotionRoutes(v1, c)
		setupBookingRoutes(v1, c)
		setupAdminPromotionRoutes(v1, c)
	}

	return router
}

// ========================================
// PROMOTION ROUTES (public)
// ========================================
func setupPromotionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	promotions := v1.Group("/promotions")
	{
		promotions.GET("", c.PromoPublicHandler.ListActive)
		promotions.POST("/validate", middleware.AuthMiddleware(c.JWTManager), c.PromoPublicHandler.Validate)
	}
}

// ========================================
// BOOKING ROUTES
// ========================================
func setupBookingRoutes(v1 *gin.RouterGroup, c *container.Container) {
	bookings := v1.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		bookings.POST("", c.BookingHandler.Create)
		bookings.GET("", c.BookingHandler.List)
		bookings.GET("/:id", c.BookingHandler.Get)

		// Promo engagement on a booking
		bookings.POST("/:id/promo", c.PromoPublicHandler.Apply)
		bookings.DELETE("/:id/promo", c.PromoPublicHandler.Remove)
	}
}

// ========================================
// ADMIN PROMOTION ROUTES
// ========================================
func setupAdminPromotionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin/promotions")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		admin.POST("", c.PromoAdminHandler.Create)
		admin.GET("", c.PromoAdminHandler.List)
		admin.GET("/:id", c.PromoAdminHandler.Get)
		admin.PATCH("/:id", c.PromoAdminHandler.Update)
		admin.PATCH("/:id/status", c.PromoAdminHandler.UpdateStatus)
		admin.DELETE("/:id", c.PromoAdminHandler.Delete)
		admin.GET("/:id/usages", c.PromoAdminHandler.UsageHistory)
		admin.GET("/:id/stats", c.PromoAdminHandler.UsageStats)
	}
}

// healthCheckHandler reports process, database and cache health.
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "up"
		if err := c.DB.HealthCheck(checkCtx); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}

		cacheStatus := "disabled"
		if c.Cache != nil {
			cacheStatus = "up"
			if err := c.Cache.Ping(checkCtx); err != nil {
				cacheStatus = "down"
			}
		}

		ctx.JSON(status, gin.H{
			"status":   dbStatus,
			"database": dbStatus,
			"cache":    cacheStatus,
			"version":  c.Config.App.Version,
			"time":     time.Now().UTC(),
		})
	}
}
