package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/handlers"
	"github.com/tradepost/storefront/internal/middleware"
)

type Deps struct {
	DB              *gorm.DB
	Auth            *middleware.Auth
	AuthHandler     *handlers.AuthHandler
	MerchantHandler *handlers.MerchantHandler
	StoreHandler    *handlers.StoreHandler
	ProductHandler  *handlers.ProductHandler
	OrderHandler    *handlers.OrderHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")
	auth := d.Auth.RequireMerchant

	api.POST("/auth/signin", d.AuthHandler.Signin)
	api.POST("/auth/signout", d.AuthHandler.Signout)

	api.POST("/users", d.MerchantHandler.CreateMerchant)
	api.GET("/users/confirm/:userId", d.MerchantHandler.ConfirmMerchant)
	api.GET("/users/me", d.MerchantHandler.GetMerchant, auth)
	api.GET("/users/:id", d.MerchantHandler.GetMerchantByID)
	api.PATCH("/users", d.MerchantHandler.UpdateMerchant, auth)
	api.DELETE("/users", d.MerchantHandler.DeleteMerchant, auth)
	api.POST("/users/changepass", d.MerchantHandler.ChangePassword, auth)
	api.POST("/users/me/image", d.MerchantHandler.UploadImage, auth)

	api.POST("/stores", d.StoreHandler.CreateStore, auth)
	api.GET("/stores", d.StoreHandler.GetStoresByMerchant, auth)
	api.GET("/stores/:id", d.StoreHandler.GetStoreByID, auth)
	api.PATCH("/stores/:id", d.StoreHandler.UpdateStore, auth)
	api.DELETE("/stores/:id", d.StoreHandler.RemoveStore, auth)
	api.POST("/stores/:storeId/image", d.StoreHandler.UploadStoreImage, auth)

	api.POST("/products/:storeId", d.ProductHandler.CreateProduct, auth)
	api.GET("/products/search", d.ProductHandler.SearchProducts)
	api.GET("/products/store/:storeId", d.ProductHandler.GetProductsByStore)
	api.GET("/products/:id", d.ProductHandler.GetProductByID)
	api.PATCH("/products/:id", d.ProductHandler.UpdateProduct, auth)
	api.DELETE("/products/:id", d.ProductHandler.RemoveProduct, auth)
	api.POST("/products/:productId/image", d.ProductHandler.UploadProductImage, auth)

	api.POST("/orders/:storeId", d.OrderHandler.CreateOrder)
	api.GET("/orders/store/:storeId", d.OrderHandler.GetOrdersByStore, auth)
	api.GET("/orders/:id", d.OrderHandler.GetOrderByID, auth)
	api.POST("/orders/tid/:tid", d.OrderHandler.GetOrderByTrackingID)
	api.POST("/orders/customer/:storeId", d.OrderHandler.GetLatestOrderByCustomerEmail, auth)
	api.POST("/orders/status/:storeId", d.OrderHandler.GetOrdersByStatus, auth)
	api.PATCH("/orders/:id", d.OrderHandler.UpdateOrderStatus, auth)
	api.DELETE("/orders/:tid", d.OrderHandler.CancelOrder)
}
