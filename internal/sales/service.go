package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"inventory_sales/internal/metrics"
)

const (
	// DefaultOrderListLimit is used when no limit is given for the sales history.
	DefaultOrderListLimit = 50
	// MaxOrderListLimit caps the sales history page size.
	MaxOrderListLimit = 200
)

const tracerName = "inventory_sales/internal/sales"

// Service provides sale settlement and catalog operations on a Storage backend.
type Service struct {
	storage Storage
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics.Registry
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTracer sets the tracer used for settlement spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithMetrics sets the registry settlements are recorded in.
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Service) { s.metrics = registry }
}

// WithClock overrides the clock used to stamp orders.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(storage Storage, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	s := &Service{
		storage: storage,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settle converts a sale request into a persisted order, decrementing the
// stock of every product sold. It runs as one transaction: on any error no
// stock change and no order survive. Lines are processed in input order and
// a line sees the stock left by earlier lines of the same request.
func (s *Service) Settle(ctx context.Context, req SaleRequest) (*SalesOrder, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "sales.settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("sale.customer", req.CustomerName),
		attribute.Int("sale.lines", len(req.Items)),
	)

	order, err := s.settle(ctx, req)

	units := 0
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		for _, item := range order.Items {
			units += item.Quantity
		}
		span.SetAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("order.total", order.TotalAmount.String()),
		)
		span.SetStatus(codes.Ok, "sale settled")
	}
	s.metrics.ObserveSettlement(outcomeOf(err), time.Since(start), units)
	return order, err
}

func (s *Service) settle(ctx context.Context, req SaleRequest) (*SalesOrder, error) {
	if err := validateRequest(req); err != nil {
		s.logger.Warn("rejected sale request", zap.String("customer_name", req.CustomerName), zap.Error(err))
		return nil, err
	}

	tx, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, s.storeFailure("begin", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback() }()

	draft := &SalesOrder{
		CustomerName: req.CustomerName,
		OrderDate:    s.now().UTC(),
		Items:        make([]SalesItem, 0, len(req.Items)),
	}
	total := decimal.Zero
	for _, line := range req.Items {
		item, err := s.settleLine(ctx, tx, line)
		if err != nil {
			return nil, err
		}
		draft.Items = append(draft.Items, *item)
		total = total.Add(item.LineTotal)
	}
	draft.TotalAmount = total

	order, err := tx.SaveOrder(ctx, draft)
	if err != nil {
		return nil, s.storeFailure("save order", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.storeFailure("commit", err)
	}

	s.logger.Info("sale settled",
		zap.String("order_id", order.ID),
		zap.String("customer_name", order.CustomerName),
		zap.Int("lines", len(order.Items)),
		zap.Stringer("total_amount", order.TotalAmount),
	)
	return order, nil
}

func (s *Service) settleLine(ctx context.Context, tx Tx, line SaleItemRequest) (*SalesItem, error) {
	product, err := tx.GetProduct(ctx, line.ProductID)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("sale references unknown product", zap.String("product_id", line.ProductID))
		return nil, &ProductNotFoundError{ProductID: line.ProductID}
	}
	if err != nil {
		return nil, s.storeFailure("get product", err)
	}

	stock, ok := product.Stock()
	if !ok || stock < line.Quantity {
		s.logger.Warn("insufficient stock",
			zap.String("product_id", product.ID),
			zap.Int("available", stock),
			zap.Int("requested", line.Quantity),
		)
		return nil, &InsufficientStockError{ProductID: product.ID, Available: stock, Requested: line.Quantity}
	}

	remaining := stock - line.Quantity
	product.StockQuantity = &remaining
	if err := tx.SaveProduct(ctx, product); err != nil {
		return nil, s.storeFailure("save product", err)
	}

	return &SalesItem{
		ProductID:    product.ID,
		ProductName:  product.Name,
		Quantity:     line.Quantity,
		PricePerUnit: product.SellingPrice,
		LineTotal:    product.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
	}, nil
}

func (s *Service) storeFailure(op string, err error) error {
	s.logger.Error("settlement aborted by store failure", zap.String("op", op), zap.Error(err))
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &StoreError{Op: op, Err: err}
}

func validateRequest(req SaleRequest) error {
	if len(req.Items) == 0 {
		return invalidRequest("sale must have at least one item")
	}
	for i, line := range req.Items {
		if line.ProductID == "" {
			return invalidRequest("item %d: missing product id", i)
		}
		if line.Quantity <= 0 {
			return invalidRequest("item %d: quantity must be greater than zero", i)
		}
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInvalidRequest):
		return metrics.OutcomeInvalidRequest
	case errors.Is(err, ErrProductNotFound):
		return metrics.OutcomeProductNotFound
	case errors.Is(err, ErrInsufficientStock):
		return metrics.OutcomeInsufficientStock
	default:
		return metrics.OutcomeStoreFailure
	}
}

// Summary computes the dashboard counters from the current catalog and orders.
func (s *Service) Summary(ctx context.Context) (*DashboardSummary, error) {
	products, err := s.storage.ListActiveProducts(ctx)
	if err != nil {
		s.logger.Error("failed to list active products", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	summary := &DashboardSummary{TotalActiveProducts: len(products)}
	for _, p := range products {
		if qty, ok := p.Stock(); ok && qty <= LowStockThreshold {
			summary.LowStockCount++
		}
	}

	summary.Revenue, err = s.storage.Revenue(ctx)
	if err != nil {
		s.logger.Error("failed to compute revenue", zap.Error(err))
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	return summary, nil
}

// ProductInput describes a new catalog entry. Active defaults to true.
type ProductInput struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	BuyingPrice   decimal.Decimal `json:"buyingPrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	StockQuantity *int            `json:"stockQuantity"`
	Active        *bool           `json:"active"`
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case category == "":
		return nil, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	case in.BuyingPrice.IsNegative():
		return nil, fmt.Errorf("%w: buying price must not be negative", ErrInvalidProduct)
	case in.SellingPrice.IsNegative():
		return nil, fmt.Errorf("%w: selling price must not be negative", ErrInvalidProduct)
	case in.StockQuantity != nil && *in.StockQuantity < 0:
		return nil, fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidProduct)
	}

	product := &Product{
		Name:          name,
		Category:      category,
		BuyingPrice:   in.BuyingPrice,
		SellingPrice:  in.SellingPrice,
		StockQuantity: in.StockQuantity,
		Active:        in.Active == nil || *in.Active,
	}
	if err := s.storage.SaveProduct(ctx, product); err != nil {
		s.logger.Error("failed to save product", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.metrics.ObserveProductCreated()
	s.logger.Info("product created", zap.String("product_id", product.ID), zap.Any("product", product))
	return product, nil
}

// ListProducts returns the whole catalog ordered by name.
func (s *Service) ListProducts(ctx context.Context) ([]*Product, error) {
	products, err := s.storage.ListProducts(ctx)
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	return products, nil
}

// GetOrder returns ErrNotFound when no order has the given ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*SalesOrder, error) {
	order, err := s.storage.GetOrder(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("failed to read order", zap.String("order_id", id), zap.Error(err))
		}
		return nil, err
	}
	return order, nil
}

// ListOrders returns the sales history, newest first. A non-positive limit
// selects DefaultOrderListLimit; larger limits are capped at MaxOrderListLimit.
func (s *Service) ListOrders(ctx context.Context, limit int) ([]*SalesOrder, error) {
	if limit <= 0 {
		limit = DefaultOrderListLimit
	}
	if limit > MaxOrderListLimit {
		limit = MaxOrderListLimit
	}

	orders, err := s.storage.ListOrders(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list orders", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}
