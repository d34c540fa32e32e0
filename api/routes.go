// Package api serves the read-only view layer plus profile management.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/metro"
	"github.com/tbruni/weekendfly/pkg/cache"
	"github.com/tbruni/weekendfly/pkg/health"
	"github.com/tbruni/weekendfly/pkg/middleware"
)

// NewRouter builds the gin engine. cacheManager may be nil; deal and airport
// listings are then served uncached.
func NewRouter(database *db.DB, index *metro.Index, cacheManager *cache.Manager) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())

	checks := health.NewRegistry()
	checks.Register("database", health.CheckerFunc(func(ctx context.Context) error {
		return database.Conn().PingContext(ctx)
	}))
	if cacheManager != nil {
		checks.Register("cache", health.CheckerFunc(cacheManager.Ping))
	}

	router.GET("/health", func(c *gin.Context) {
		report := checks.Report(c.Request.Context())
		status := http.StatusOK
		if report.Status != health.StatusOK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	v1 := router.Group("/api/v1")
	if cacheManager != nil {
		v1.Use(middleware.ResponseCache(cacheManager, cache.ResponseTTL))
	}
	{
		v1.GET("/deals", listDeals(database, index))

		v1.GET("/profiles", listProfiles(database))
		v1.GET("/profiles/:id", getProfile(database))
		v1.POST("/profiles", createProfile(database))

		v1.GET("/airports/:code/nearby", nearbyAirports(index))
	}

	return router
}
