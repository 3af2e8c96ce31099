package v1

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under /api/v1. Every API request runs
// inside its own session.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router.GET("/healthz", h.HandleHealthcheck)

	api := router.Group("/api/v1", h.HandleSessionMiddleware)

	authRouter := api.Group("/auth")
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/login", h.HandleLogin)
	authRouter.POST("/logout", h.HandleLogout)
	authRouter.GET("/me", h.HandleAuthMiddleware, h.HandleMe)

	tasksRouter := api.Group("/tasks", h.HandleAuthMiddleware)
	tasksRouter.POST("", h.HandleCreateTask)
	tasksRouter.GET("", h.HandleGetTasks)
	tasksRouter.GET("/search", h.HandleSearchTasks)
	tasksRouter.GET("/statistics", h.HandleGetTaskStatistics)
	tasksRouter.POST("/bulk", h.HandleBulkCreateTasks)
	tasksRouter.PATCH("/bulk/status", h.HandleBulkUpdateTaskStatus)
	tasksRouter.GET("/:id", h.HandleGetTask)
	tasksRouter.PATCH("/:id", h.HandleUpdateTask)
	tasksRouter.DELETE("/:id", h.HandleDeleteTask)

	shipmentsRouter := api.Group("/shipments", h.HandleAuthMiddleware)
	shipmentsRouter.POST("", h.HandleCreateShipment)
	shipmentsRouter.GET("", h.HandleGetShipments)
	shipmentsRouter.GET("/search", h.HandleSearchShipments)
	shipmentsRouter.GET("/statistics", h.HandleGetShipmentStatistics)
	shipmentsRouter.POST("/bulk", h.HandleBulkCreateShipments)
	shipmentsRouter.PATCH("/bulk/status", h.HandleBulkUpdateShipmentStatus)
	shipmentsRouter.GET("/:id", h.HandleGetShipment)
	shipmentsRouter.PATCH("/:id", h.HandleUpdateShipment)
	shipmentsRouter.DELETE("/:id", h.HandleDeleteShipment)
}
