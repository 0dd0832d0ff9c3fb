package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noloji/payments-service/internal/api/handler"
	"github.com/noloji/payments-service/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	paymentHandler *handler.PaymentHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// Payment operations
	payments := r.Group("/payments")
	{
		payments.POST("/stk-push", paymentHandler.InitiatePush)
		payments.GET("/stk-push", paymentHandler.ProviderStatus)
		payments.POST("/stk-callback", paymentHandler.HandleCallback)
		payments.GET("/stk-status", paymentHandler.GetStatus)
		payments.GET("/stk-trail", paymentHandler.GetTrail)
	}

	// Customer payment history
	customers := r.Group("/customers")
	{
		customers.GET("/:id/payments", paymentHandler.GetCustomerPayments)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
