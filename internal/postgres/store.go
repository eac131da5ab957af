package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"inventory_sales/internal/sales"
)

// Store implements sales.Storage on PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ sales.Storage = (*Store)(nil)

// New opens the database, checks the connection and applies the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const productColumns = `id, name, category, buying_price, selling_price, stock_quantity, active`

func scanProduct(row interface{ Scan(...any) error }) (*sales.Product, error) {
	var (
		p     sales.Product
		stock sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.BuyingPrice, &p.SellingPrice, &stock, &p.Active); err != nil {
		return nil, err
	}
	if stock.Valid {
		qty := int(stock.Int64)
		p.StockQuantity = &qty
	}
	return &p, nil
}

func getProduct(ctx context.Context, q querier, id string, forUpdate bool) (*sales.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func saveProduct(ctx context.Context, q querier, p *sales.Product) error {
	if qty, ok := p.Stock(); ok && qty < 0 {
		return sales.ErrNegativeStock
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var stock sql.NullInt64
	if qty, ok := p.Stock(); ok {
		stock = sql.NullInt64{Int64: int64(qty), Valid: true}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			buying_price = EXCLUDED.buying_price,
			selling_price = EXCLUDED.selling_price,
			stock_quantity = EXCLUDED.stock_quantity,
			active = EXCLUDED.active
	`, p.ID, p.Name, p.Category, p.BuyingPrice, p.SellingPrice, stock, p.Active)
	return err
}

func listProducts(ctx context.Context, q querier, activeOnly bool) ([]*sales.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*sales.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*sales.Product, error) {
	return getProduct(ctx, s.db, id, false)
}

func (s *Store) SaveProduct(ctx context.Context, p *sales.Product) error {
	return saveProduct(ctx, s.db, p)
}

func (s *Store) ListActiveProducts(ctx context.Context) ([]*sales.Product, error) {
	return listProducts(ctx, s.db, true)
}

func (s *Store) ListProducts(ctx context.Context) ([]*sales.Product, error) {
	return listProducts(ctx, s.db, false)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*sales.SalesOrder, error) {
	var o sales.SalesOrder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, order_date, total_amount
		FROM sales_orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.CustomerName, &o.OrderDate, &o.TotalAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]*sales.SalesOrder, error) {
	query := `
		SELECT id, customer_name, order_date, total_amount
		FROM sales_orders
		ORDER BY order_date DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	orders := make([]*sales.SalesOrder, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var o sales.SalesOrder
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.OrderDate, &o.TotalAmount); err != nil {
			_ = rows.Close()
			return nil, err
		}
		orders = append(orders, &o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}
	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return orders, nil
}

func (s *Store) loadItems(ctx context.Context, orderIDs []string) (map[string][]sales.SalesItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price_per_unit, line_total
		FROM sales_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string][]sales.SalesItem, len(orderIDs))
	for rows.Next() {
		var it sales.SalesItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PricePerUnit, &it.LineTotal); err != nil {
			return nil, err
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

func (s *Store) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM sales_orders`).Scan(&revenue)
	return revenue, err
}

// Begin opens a READ COMMITTED transaction. Products read through it are
// locked with SELECT ... FOR UPDATE until it ends.
func (s *Store) Begin(ctx context.Context) (sales.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (*sales.Product, error) {
	return getProduct(ctx, t.tx, id, true)
}

func (t *pgTx) SaveProduct(ctx context.Context, p *sales.Product) error {
	return saveProduct(ctx, t.tx, p)
}

func (t *pgTx) ListActiveProducts(ctx context.Context) ([]*sales.Product, error) {
	return listProducts(ctx, t.tx, true)
}

func (t *pgTx) SaveOrder(ctx context.Context, o *sales.SalesOrder) (*sales.SalesOrder, error) {
	if len(o.Items) == 0 {
		return nil, sales.ErrEmptyOrder
	}

	saved := *o
	saved.ID = uuid.NewString()
	saved.Items = make([]sales.SalesItem, len(o.Items))
	copy(saved.Items, o.Items)

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales_orders (id, customer_name, order_date, total_amount)
		VALUES ($1, $2, $3, $4)
	`, saved.ID, saved.CustomerName, saved.OrderDate, saved.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	// Insert items with batch
	var (
		placeholders []string
		values       []any
	)
	for i := range saved.Items {
		it := &saved.Items[i]
		it.ID = uuid.NewString()
		it.OrderID = saved.ID
		n := len(values)
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8))
		values = append(values, it.ID, it.OrderID, it.ProductID, i, it.ProductName, it.Quantity, it.PricePerUnit, it.LineTotal)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO sales_items (id, order_id, product_id, position, product_name, quantity, price_per_unit, line_total)
		VALUES `+strings.Join(placeholders, ", "), values...)
	if err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	return &saved, nil
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return sales.ErrTxDone
		}
		return err
	}
	return nil
}

func (t *pgTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return sales.ErrTxDone
		}
		return err
	}
	return nil
}
