package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pyop-labs/ticketing-backend/internal/transport/middleware"
)

func InitRoutes(
	eventHandler *EventHandler,
	orderHandler *OrderHandler,
	userHandler *UserHandler,
	categoryHandler *CategoryHandler,
) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Event routes
		events := api.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.GET("", eventHandler.ListEvents)
			events.GET("/:id", eventHandler.GetEvent)
			events.PUT("/:id", eventHandler.UpdateEvent)
			events.DELETE("/:id", eventHandler.DeleteEvent)
			events.GET("/:id/related", eventHandler.GetRelatedEvents)
			events.GET("/organizer/:clerk_id", eventHandler.GetEventsByOrganizer)
		}

		// Order routes
		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.POST("/quote", orderHandler.QuotePromo)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/user/:clerk_id", orderHandler.GetOrderForBuyer)
			orders.GET("/user/:clerk_id", orderHandler.GetUserOrders)
			orders.POST("/:id/checkin", orderHandler.CheckInOrder)
		}

		// User routes
		users := api.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("/:clerk_id", userHandler.GetUser)
		}

		// Category routes
		categories := api.Group("/categories")
		{
			categories.POST("", categoryHandler.CreateCategory)
			categories.GET("", categoryHandler.GetAllCategories)
			categories.GET("/:id", categoryHandler.GetCategory)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
