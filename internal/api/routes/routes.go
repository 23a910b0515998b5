package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"golang-task-automation-engine/internal/api/handlers"
)

func SetupRoutes(router *gin.Engine, schedulerHandler *handlers.SchedulerHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		schedulerGroup := v1.Group("/scheduler")
		{
			schedulerGroup.GET("/status", schedulerHandler.GetStatus)
			schedulerGroup.GET("/stats", schedulerHandler.GetStats)
			schedulerGroup.POST("/cleanup", schedulerHandler.Cleanup)
		}

		taskGroup := v1.Group("/tasks")
		{
			taskGroup.GET("", schedulerHandler.ListTasks)
			taskGroup.POST("/:id/run", schedulerHandler.RunTask)
		}
	}
}
