package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/stageiq/stageiq/internal/api/handlers"
	"github.com/stageiq/stageiq/internal/api/middleware"
)

type Deps struct {
	Assessment *handlers.AssessmentHandler
	Usage      *handlers.UsageHandler
	WS         *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/assessments", d.Assessment.Submit)
	auth.GET("/assessments", d.Assessment.List)
	auth.GET("/assessments/:assessment_id", d.Assessment.Result)
	auth.GET("/assessments/:assessment_id/status", d.Assessment.Status)
	auth.GET("/assessments/:assessment_id/timings", d.Assessment.Timings)

	auth.GET("/usage/quota", d.Usage.Quota)

	// WebSocket status push
	auth.GET("/ws/assessments/:assessment_id", d.WS.AssessmentWS)

	// Admin
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/usage/:user_id", d.Usage.QuotaForUser)
}
