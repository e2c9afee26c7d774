package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts the REST and websocket endpoints on router.
func SetupRoutes(router *gin.Engine, authHandler *AuthHandler, tableHandler *TableHandler, streamHandler *StreamHandler, tokens TokenParser) {
	api := router.Group("/api")
	{
		public := api.Group("/auth")
		{
			public.POST("/guest", authHandler.Guest)
			public.POST("/register", authHandler.Register)
			public.POST("/login", authHandler.Login)
		}

		protected := api.Group("/")
		protected.Use(AuthMiddleware(tokens))
		{
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/join", tableHandler.JoinByCode)

			tables := protected.Group("/tables")
			{
				tables.POST("", tableHandler.Create)
				tables.GET("", tableHandler.List)
				tables.GET("/:id", tableHandler.Get)
				tables.DELETE("/:id", tableHandler.Delete)
				tables.POST("/:id/join", tableHandler.Join)
				tables.POST("/:id/leave", tableHandler.Leave)
				tables.POST("/:id/ready", tableHandler.Ready)
				tables.POST("/:id/start", tableHandler.Start)
				tables.GET("/:id/ws", streamHandler.Stream)
			}
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
