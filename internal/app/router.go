package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tripmeter/internal/handler"
	"tripmeter/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	FareHandler     *handler.FareHandler
	PlaceHandler    *handler.PlaceHandler
	TrackingHandler *handler.TrackingHandler
	DriverHandler   *handler.DriverHandler
	PaymentHandler  *handler.PaymentHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
	Logger          *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.TransactionAttributes())
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/fares/estimate", deps.FareHandler.Estimate)
		v1.GET("/fares/profiles", deps.FareHandler.Profiles)
		v1.GET("/routes", deps.FareHandler.Route)
		v1.GET("/places", deps.PlaceHandler.Search)

		trips := v1.Group("/trips/:id")
		{
			trips.POST("/tracking/start", deps.TrackingHandler.Start)
			trips.POST("/tracking/stop", deps.TrackingHandler.Stop)
			trips.GET("/tracking", deps.TrackingHandler.Get)
			trips.GET("/receipt", deps.TrackingHandler.Receipt)
			trips.POST("/positions", deps.TrackingHandler.PostPosition)
			trips.GET("/positions/ws", deps.TrackingHandler.PositionStream)
		}

		drivers := v1.Group("/drivers/:id")
		{
			drivers.POST("/location", deps.DriverHandler.UpdateLocation)
			drivers.DELETE("/location", deps.DriverHandler.GoOffline)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.ProcessPayment)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}
	}

	return router
}
