package sales

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product or order with the given ID is not found.
var ErrNotFound = errors.New("not found")

// ErrEmptyOrder is returned when trying to store an order without items.
var ErrEmptyOrder = errors.New("order has no items")

// ErrNegativeStock is returned when trying to store a product with negative stock.
var ErrNegativeStock = errors.New("stock quantity must not be negative")

// ErrTxDone is returned by any operation on a committed or rolled back transaction.
var ErrTxDone = errors.New("transaction already committed or rolled back")

// CatalogStore holds products keyed by ID.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	// SaveProduct inserts or updates a product, assigning an ID when empty.
	SaveProduct(ctx context.Context, p *Product) error
	ListActiveProducts(ctx context.Context) ([]*Product, error)
}

// OrderStore persists orders together with their items.
type OrderStore interface {
	// SaveOrder assigns the order and item IDs and persists them as one unit.
	SaveOrder(ctx context.Context, o *SalesOrder) (*SalesOrder, error)
}

// Tx is a unit of work over the catalog and the orders. Products read
// through a Tx are locked against other transactions until Commit or
// Rollback. Rollback after Commit returns ErrTxDone and changes nothing.
type Tx interface {
	CatalogStore
	OrderStore
	Commit() error
	Rollback() error
}

// Storage is the main interface for our sales storage layer.
type Storage interface {
	CatalogStore
	Begin(ctx context.Context) (Tx, error)
	// ListProducts returns every product ordered by name.
	ListProducts(ctx context.Context) ([]*Product, error)
	GetOrder(ctx context.Context, id string) (*SalesOrder, error)
	// ListOrders returns at most limit orders, newest first.
	ListOrders(ctx context.Context, limit int) ([]*SalesOrder, error)
	// Revenue is the sum of all order totals.
	Revenue(ctx context.Context) (decimal.Decimal, error)
}

// LocalStorage provides an in-memory implementation of Storage. A
// transaction holds the write lock from Begin until Commit or Rollback,
// so transactions are serialised. Do not call LocalStorage methods from a
// goroutine that holds an open Tx.
type LocalStorage struct {
	mu       sync.RWMutex
	products map[string]*Product
	orders   map[string]*SalesOrder
	sequence []string
}

// NewLocalStorage instantiates a new LocalStorage with empty maps.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		products: map[string]*Product{},
		orders:   map[string]*SalesOrder{},
	}
}

// GetProduct returns a copy of the product.
func (l *LocalStorage) GetProduct(ctx context.Context, id string) (*Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (l *LocalStorage) SaveProduct(ctx context.Context, p *Product) error {
	if err := checkProduct(p); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	l.products[p.ID] = p.clone()
	return nil
}

func (l *LocalStorage) ListActiveProducts(ctx context.Context) ([]*Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filterProducts(l.products, nil, true), nil
}

func (l *LocalStorage) ListProducts(ctx context.Context) ([]*Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filterProducts(l.products, nil, false), nil
}

func (l *LocalStorage) GetOrder(ctx context.Context, id string) (*SalesOrder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

func (l *LocalStorage) ListOrders(ctx context.Context, limit int) ([]*SalesOrder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	orders := make([]*SalesOrder, 0, len(l.sequence))
	for i := len(l.sequence) - 1; i >= 0; i-- {
		if limit > 0 && len(orders) == limit {
			break
		}
		orders = append(orders, l.orders[l.sequence[i]].clone())
	}
	return orders, nil
}

func (l *LocalStorage) Revenue(ctx context.Context) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for _, o := range l.orders {
		total = total.Add(o.TotalAmount)
	}
	return total, nil
}

// Begin opens a transaction, waiting for any other open transaction to end.
func (l *LocalStorage) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	return &localTx{
		storage:  l,
		products: map[string]*Product{},
	}, nil
}

// localTx stages writes until Commit. The storage write lock is held for
// its whole lifetime.
type localTx struct {
	storage  *LocalStorage
	products map[string]*Product
	orders   []*SalesOrder
	done     bool
}

func (t *localTx) GetProduct(ctx context.Context, id string) (*Product, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if p, ok := t.products[id]; ok {
		return p.clone(), nil
	}
	p, ok := t.storage.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (t *localTx) SaveProduct(ctx context.Context, p *Product) error {
	if t.done {
		return ErrTxDone
	}
	if err := checkProduct(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	t.products[p.ID] = p.clone()
	return nil
}

func (t *localTx) ListActiveProducts(ctx context.Context) ([]*Product, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return filterProducts(t.storage.products, t.products, true), nil
}

func (t *localTx) SaveOrder(ctx context.Context, o *SalesOrder) (*SalesOrder, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if len(o.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	saved := o.clone()
	saved.ID = uuid.NewString()
	for i := range saved.Items {
		saved.Items[i].ID = uuid.NewString()
		saved.Items[i].OrderID = saved.ID
	}
	t.orders = append(t.orders, saved)
	return saved.clone(), nil
}

func (t *localTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	s := t.storage
	for id, p := range t.products {
		s.products[id] = p
	}
	for _, o := range t.orders {
		s.orders[o.ID] = o
		s.sequence = append(s.sequence, o.ID)
	}
	s.mu.Unlock()
	return nil
}

func (t *localTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.products = nil
	t.orders = nil
	t.storage.mu.Unlock()
	return nil
}

func checkProduct(p *Product) error {
	if qty, ok := p.Stock(); ok && qty < 0 {
		return ErrNegativeStock
	}
	return nil
}

// filterProducts merges staged over committed and returns copies sorted by name.
func filterProducts(committed, staged map[string]*Product, activeOnly bool) []*Product {
	merged := make(map[string]*Product, len(committed)+len(staged))
	for id, p := range committed {
		merged[id] = p
	}
	for id, p := range staged {
		merged[id] = p
	}
	products := make([]*Product, 0, len(merged))
	for _, p := range merged {
		if activeOnly && !p.Active {
			continue
		}
		products = append(products, p.clone())
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products
}
