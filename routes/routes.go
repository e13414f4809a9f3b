package routes

import (
	"pickup-service/controllers"
	"pickup-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all pickup service routes.
func RegisterRoutes(r *gin.Engine, pickups *controllers.PickupController, stocks *controllers.StockController, events *controllers.EventsController) {
	api := r.Group("/api", middleware.AuthMiddleware())
	{
		p := api.Group("/pickups")
		{
			p.POST("", pickups.CreatePickup)
			p.GET("", pickups.ListPickups)
			p.GET("/:id", pickups.GetPickup)
			p.GET("/:id/countdown", pickups.Countdown)
			p.POST("/:id/confirm", pickups.ConfirmSale)
			p.POST("/:id/return", pickups.ReturnPickup)
			p.POST("/:id/transfer", pickups.TransferPickup)
		}

		s := api.Group("/stocks")
		{
			s.GET("/:dealerId", stocks.ListStock)
			s.POST("", stocks.SetStock)
			s.POST("/sweep", stocks.Sweep)
		}

		api.GET("/events/stream", events.Stream)
	}
}
