// Package api exposes the ledger services over a JSON HTTP interface.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/metrics"
	"github.com/jask/jangbu/internal/service"
)

// Services bundles what the handlers call into.
type Services struct {
	Ingest      *service.IngestService
	Search      *service.SearchService
	Reconciler  *service.Reconciler
	Maintenance *service.MaintenanceService
	Metrics     *metrics.Metrics
}

// SetupRouter wires every route onto a new engine.
func SetupRouter(svc Services, log zerolog.Logger) *gin.Engine {
	lc := LedgerController{svc: svc}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/ingest", lc.Ingest)
		api.GET("/batches", lc.Batches)

		api.POST("/search", lc.Search)
		api.POST("/search/export", lc.Export)
		api.POST("/facets", lc.Facets)
		api.GET("/duplicates", lc.Duplicates)

		records := api.Group("/records")
		{
			records.PATCH("/:id", lc.UpdateRecord)
			records.DELETE("/:id", lc.DeleteRecord)
			// DELETE /api/v1/records?confirm=true wipes the ledger
			records.DELETE("", lc.DeleteAll)
		}
	}
	return router
}

func requestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := base.With().Str("method", c.Request.Method).Str("path", c.FullPath()).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))
		c.Next()
		l.Info().Int("status", c.Writer.Status()).Dur("took", time.Since(start)).Msg("request")
	}
}
