package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory_sales/internal/sales"
)

// salesHandler holds the sales service and implements HTTP handlers for sales operations.
type salesHandler struct {
	salesService *sales.Service
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		logger:       logger,
	}
}

// handleSettleSale handles the POST /sales endpoint.
func (h *salesHandler) handleSettleSale(ctx *gin.Context) {
	var req sales.SaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	order, err := h.salesService.Settle(ctx.Request.Context(), req)
	if err != nil {
		var (
			notFound *sales.ProductNotFoundError
			short    *sales.InsufficientStockError
		)
		switch {
		case errors.Is(err, sales.ErrInvalidRequest):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &notFound):
			ctx.JSON(http.StatusNotFound, gin.H{
				"error":     "product not found",
				"productId": notFound.ProductID,
			})
		case errors.As(err, &short):
			ctx.JSON(http.StatusConflict, gin.H{
				"error":     "insufficient stock",
				"productId": short.ProductID,
				"available": short.Available,
				"requested": short.Requested,
			})
		default:
			h.logger.Error("failed to settle sale", zap.String("customer_name", req.CustomerName), zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to settle sale"})
		}
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// handleListSales handles GET /sales?limit=N.
func (h *salesHandler) handleListSales(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	orders, err := h.salesService.ListOrders(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sales"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
}

func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	order, err := h.salesService.GetOrder(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sale"})
		return
	}
	ctx.JSON(http.StatusOK, order)
}

func (h *salesHandler) handleListProducts(ctx *gin.Context) {
	products, err := h.salesService.ListProducts(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	ctx.JSON(http.StatusOK, products)
}

func (h *salesHandler) handleCreateProduct(ctx *gin.Context) {
	var in sales.ProductInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	product, err := h.salesService.CreateProduct(ctx.Request.Context(), in)
	if err != nil {
		if errors.Is(err, sales.ErrInvalidProduct) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
		return
	}
	ctx.JSON(http.StatusCreated, product)
}

// handleSummary handles GET /dashboard/summary.
func (h *salesHandler) handleSummary(ctx *gin.Context) {
	summary, err := h.salesService.Summary(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute summary"})
		return
	}
	ctx.JSON(http.StatusOK, summary)
}
