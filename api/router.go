package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory_sales/internal/metrics"
	"inventory_sales/internal/sales"
)

// InitRoutes binds the sales, catalog and dashboard endpoints on the given
// Gin engine. /metrics is only registered when a registry is given.
func InitRoutes(e *gin.Engine, salesService *sales.Service, registry *metrics.Registry, logger *zap.Logger) {
	salesHandler := NewSalesHandler(salesService, logger)

	e.POST("/sales", salesHandler.handleSettleSale)
	e.GET("/sales", salesHandler.handleListSales)
	e.GET("/sales/:id", salesHandler.handleGetSale)

	e.GET("/products", salesHandler.handleListProducts)
	e.POST("/products", salesHandler.handleCreateProduct)

	e.GET("/dashboard/summary", salesHandler.handleSummary)

	if registry != nil {
		e.GET("/metrics", gin.WrapH(registry.Handler()))
	}

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
