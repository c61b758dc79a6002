// Package ginserver exposes the booking engine over HTTP.
package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentloop/internal/infra/config"
	"rentloop/internal/infra/obs"
)

type Handlers struct {
	Booking      *BookingHandler
	Availability *AvailabilityHandler
	Payout       *PayoutHandler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-User-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.GET("/bookings/:id/next-states", h.Booking.NextStates)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/reject", h.Booking.Reject)
		api.POST("/bookings/:id/pay", h.Booking.Pay)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/complete", h.Booking.Complete)
		api.GET("/me/bookings", h.Booking.ListMine)
		api.GET("/host/bookings", h.Booking.ListForHost)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.GET("/listings/:id/slots", h.Availability.DaySlots)
	}
	if h.Payout != nil {
		api.GET("/host/earnings", h.Payout.Earnings)
		hostPayouts := api.Group("/host/payouts")
		hostPayouts.GET("", h.Payout.List)
		hostPayouts.POST("", h.Payout.Create)
		hostPayouts.POST("/:id/settle", h.Payout.Settle)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
