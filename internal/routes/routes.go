package routes

import (
	"catalogue_back_end/internal/cache"
	"catalogue_back_end/internal/handlers"
	"catalogue_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, rdb *cache.Cache) {
	api := r.Group("/api")

	api.GET("/health", h.Health)

	// Catalogue public
	api.GET("/categories", h.GetCategories)
	api.GET("/products", h.GetProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products/:id/view", h.RecordView)
	api.POST("/products/:id/reviews", h.AddReview)

	// Wishlist & historique par session
	api.GET("/wishlist", h.GetWishlist)
	api.POST("/wishlist/:productId", h.AddToWishlist)
	api.DELETE("/wishlist/:productId", h.RemoveFromWishlist)
	api.GET("/history", h.GetHistory)
	api.GET("/recommended", h.GetRecommended)

	// Admin
	admin := api.Group("/admin")
	admin.POST("/login", middleware.LoginRateLimit(rdb), h.AdminLogin)

	authed := admin.Group("", middleware.RequireAdmin)
	authed.GET("/products", h.AdminProducts)
	authed.POST("/products", h.AdminCreateProduct)
	authed.PUT("/products/:id", h.AdminUpdateProduct)
	authed.DELETE("/products/:id", h.AdminDeleteProduct)
	authed.GET("/images/sign", h.SignImage)
	authed.GET("/categories", h.AdminCategories)
	authed.POST("/categories", h.AdminCreateCategory)
	authed.PUT("/categories/:id", h.AdminUpdateCategory)
	authed.DELETE("/categories/:id", h.AdminDeleteCategory)
}
