package server

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpHandler "github.com/navneeth/viralvibes/interfaces/http"
)

func InitiateRouter(
	analysisHandler httpHandler.IAnalysisHandler,
	dashboardHandler httpHandler.IDashboardHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Allowed origins come from ALLOWED_ORIGINS (comma-separated) with a
	// localhost default for development.
	allowedList := []string{
		"http://localhost:4200",
		"http://localhost:10001",
	}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		parts := strings.Split(env, ",")
		allowedList = allowedList[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				allowedList = append(allowedList, p)
			}
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedList,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.OPTIONS("/*corsPreflight", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Analysis flow: submit, preview, poll, render.
	router.POST("/submit-job", analysisHandler.SubmitJob)
	router.GET("/preview", analysisHandler.Preview)
	router.GET("/job-progress", analysisHandler.JobProgress)
	router.GET("/playlist/full", analysisHandler.FullRender)

	// Shareable dashboards.
	router.GET("/d/:id", dashboardHandler.GetDashboard)
	router.POST("/d/:id/events", dashboardHandler.RecordEvent)

	return router
}
