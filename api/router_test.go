package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"inventory_sales/api"
	"inventory_sales/internal/metrics"
	"inventory_sales/internal/sales"
)

func initRoutesTests(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	logger := zaptest.NewLogger(t)
	registry := metrics.NewRegistry()
	salesService := sales.NewService(sales.NewLocalStorage(), logger, sales.WithMetrics(registry))
	api.InitRoutes(router, salesService, registry, logger)

	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createProduct(t *testing.T, router *gin.Engine, name string, stock int, price string) sales.Product {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/products", map[string]any{
		"name":          name,
		"category":      "Peripherals",
		"buyingPrice":   "1.00",
		"sellingPrice":  price,
		"stockQuantity": stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 Created for product creation: %s", w.Body.String())

	var product sales.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	return product
}

// TestSalesHappyPath_FullFlow covers catalog -> sale -> history -> dashboard.
func TestSalesHappyPath_FullFlow(t *testing.T) {
	router := initRoutesTests(t)

	mouse := createProduct(t, router, "Mouse", 10, "25.50")
	cable := createProduct(t, router, "Cable", 3, "4.25")

	var saleID string

	t.Run("POST_SettleSale", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"customerName": "Ada",
			"items": []map[string]any{
				{"productId": mouse.ID, "quantity": 2},
				{"productId": cable.ID, "quantity": 3},
			},
		})

		assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP 201 Created status for successful sale")

		var order sales.SalesOrder
		err := json.Unmarshal(w.Body.Bytes(), &order)
		assert.NoError(t, err, "Expected no error unmarshalling created order response")
		assert.NotEmpty(t, order.ID, "Expected order ID to be generated")
		assert.Equal(t, "Ada", order.CustomerName, "Expected correct customer name")
		assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("63.75")), "Expected total 63.75, got %s", order.TotalAmount)
		assert.Len(t, order.Items, 2, "Expected one item per request line")

		saleID = order.ID
	})

	if saleID == "" {
		t.Fatal("Sale ID was not successfully generated in POST_SettleSale step.")
	}

	t.Run("GET_Sale", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, fmt.Sprintf("/sales/%s", saleID), nil)
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 OK for existing sale")

		var order sales.SalesOrder
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
		assert.Equal(t, saleID, order.ID)
	})

	t.Run("GET_ListSales", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales?limit=10", nil)
		assert.Equal(t, http.StatusOK, w.Code, "Expected HTTP 200 OK for sales history")

		var response struct {
			Results []sales.SalesOrder `json:"results"`
			Count   int                `json:"count"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Count)
		require.Len(t, response.Results, 1)
		assert.Equal(t, saleID, response.Results[0].ID)
	})

	t.Run("GET_Products", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/products", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var products []sales.Product
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
		require.Len(t, products, 2)
		// Sorted by name: Cable, Mouse.
		assert.Equal(t, 0, *products[0].StockQuantity, "Expected cable stock to be sold out")
		assert.Equal(t, 8, *products[1].StockQuantity, "Expected mouse stock to drop by 2")
	})

	t.Run("GET_DashboardSummary", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/dashboard/summary", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var summary sales.DashboardSummary
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 2, summary.TotalActiveProducts)
		assert.Equal(t, 1, summary.LowStockCount, "Expected the sold-out cable to count as low stock")
		assert.True(t, summary.Revenue.Equal(decimal.RequireFromString("63.75")))
	})

	t.Run("GET_Metrics", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `sales_settlements_total{outcome="success"} 1`)
	})
}

func TestSettleSale_Errors(t *testing.T) {
	router := initRoutesTests(t)
	product := createProduct(t, router, "Monitor", 2, "150")

	t.Run("MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("EmptyItems", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{"customerName": "Bob", "items": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"items": []map[string]any{{"productId": "does-not-exist", "quantity": 1}},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)

		var body map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "does-not-exist", body["productId"])
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales", map[string]any{
			"items": []map[string]any{{"productId": product.ID, "quantity": 5}},
		})
		assert.Equal(t, http.StatusConflict, w.Code)

		var body struct {
			ProductID string `json:"productId"`
			Available int    `json:"available"`
			Requested int    `json:"requested"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, product.ID, body.ProductID)
		assert.Equal(t, 2, body.Available)
		assert.Equal(t, 5, body.Requested)
	})

	t.Run("NothingPersisted", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":0`)
	})
}

func TestGetSale_NotFound(t *testing.T) {
	router := initRoutesTests(t)

	w := doJSON(router, http.MethodGet, "/sales/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSales_InvalidLimit(t *testing.T) {
	router := initRoutesTests(t)

	w := doJSON(router, http.MethodGet, "/sales?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProduct_Invalid(t *testing.T) {
	router := initRoutesTests(t)

	w := doJSON(router, http.MethodPost, "/products", map[string]any{
		"name":         "",
		"category":     "Peripherals",
		"sellingPrice": "3",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPing(t *testing.T) {
	router := initRoutesTests(t)

	w := doJSON(router, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}
