package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"visa-appointment-backend/config"
	"visa-appointment-backend/internal/mw"
	"visa-appointment-backend/internal/store"
)

// NewRouter creates and configures the dashboard's Gin router. All
// data endpoints read the mirror store; only subscription management
// touches the primary.
func NewRouter(cfg *config.ServerConfig, mirror store.Store, primary *gorm.DB, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(mirror, primary, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/logs", caching, handler.GetLogs)
		api.GET("/appointments", caching, handler.GetAppointments)
		api.GET("/responses", caching, handler.GetResponses)
		api.GET("/unique_appointments", caching, handler.GetUniqueAppointments)
		api.GET("/unique_appointments/:id/latest", handler.GetLatestObservation)
		api.GET("/unique_appointments/:id/history", handler.GetObservationHistory)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
