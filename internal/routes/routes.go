package routes

import (
	"noirbleed_cart/internal/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes monte la passerelle en lecture seule. Les middlewares
// passés en plus (limitation de débit) ne s'appliquent qu'au groupe /api/cart.
func RegisterRoutes(r *gin.Engine, cartHandler *handlers.CartHandler, middlewares ...gin.HandlerFunc) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
	}))

	api := r.Group("/api/cart", middlewares...)
	api.GET("", cartHandler.GetCart)
	api.GET("/count", cartHandler.GetCount)
	api.GET("/ws", cartHandler.CartWebSocket)
}
