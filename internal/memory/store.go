package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrisetiaw/go-storefront/internal/orders"
)

// Store is an in-memory orders.Store. One mutex guards all state, so units of
// work are fully serialized; WithTx snapshots the maps and restores them when
// fn fails, which gives the same all-or-nothing semantics as a database
// transaction.
type Store struct {
	mu sync.Mutex
	st state
}

type state struct {
	products   map[string]orders.Product
	carts      map[string]orders.Cart // by cart id
	cartByUser map[string]string      // user id -> cart id
	cartItems  map[string]orders.CartItem
	itemSeq    map[string]int // cart item id -> insertion order
	orders     map[string]orders.Order
	orderItems map[string][]orders.OrderItem
	seq        int
}

func NewStore() *Store {
	return &Store{st: state{
		products:   make(map[string]orders.Product),
		carts:      make(map[string]orders.Cart),
		cartByUser: make(map[string]string),
		cartItems:  make(map[string]orders.CartItem),
		itemSeq:    make(map[string]int),
		orders:     make(map[string]orders.Order),
		orderItems: make(map[string][]orders.OrderItem),
	}}
}

// PutProduct inserts or replaces a catalog row. Intended for seeding.
func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

func (s *Store) WithTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&storeTx{st: &s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.st.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Items = append([]orders.OrderItem(nil), s.st.orderItems[orderID]...)
	return o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []orders.Order
	for _, o := range s.st.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Order, 0, len(s.st.orders))
	for _, o := range s.st.orders {
		out = append(out, o)
	}
	sortByCreated(out)
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Product, 0, len(s.st.products))
	for _, p := range s.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func sortByCreated(os []orders.Order) {
	sort.Slice(os, func(i, j int) bool { return os[i].CreatedAt.After(os[j].CreatedAt) })
}

func (st state) clone() state {
	cp := state{
		products:   make(map[string]orders.Product, len(st.products)),
		carts:      make(map[string]orders.Cart, len(st.carts)),
		cartByUser: make(map[string]string, len(st.cartByUser)),
		cartItems:  make(map[string]orders.CartItem, len(st.cartItems)),
		itemSeq:    make(map[string]int, len(st.itemSeq)),
		orders:     make(map[string]orders.Order, len(st.orders)),
		orderItems: make(map[string][]orders.OrderItem, len(st.orderItems)),
		seq:        st.seq,
	}
	for k, v := range st.products {
		cp.products[k] = v
	}
	for k, v := range st.carts {
		cp.carts[k] = v
	}
	for k, v := range st.cartByUser {
		cp.cartByUser[k] = v
	}
	for k, v := range st.cartItems {
		cp.cartItems[k] = v
	}
	for k, v := range st.itemSeq {
		cp.itemSeq[k] = v
	}
	for k, v := range st.orders {
		cp.orders[k] = v
	}
	for k, v := range st.orderItems {
		cp.orderItems[k] = append([]orders.OrderItem(nil), v...)
	}
	return cp
}

type storeTx struct{ st *state }

func (t *storeTx) CartForUser(ctx context.Context, userID string) (orders.Cart, error) {
	if id, ok := t.st.cartByUser[userID]; ok {
		return t.st.carts[id], nil
	}
	now := time.Now().UTC()
	c := orders.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	t.st.carts[c.ID] = c
	t.st.cartByUser[userID] = c.ID
	return c, nil
}

func (t *storeTx) CartLines(ctx context.Context, cartID string) ([]orders.CartLine, error) {
	var out []orders.CartLine
	for _, it := range t.st.cartItems {
		if it.CartID != cartID {
			continue
		}
		p, ok := t.st.products[it.ProductID]
		if !ok {
			return nil, orders.ErrNotFound
		}
		out = append(out, orders.CartLine{CartItem: it, ProductName: p.Name, UnitPrice: p.Price})
	}
	sort.Slice(out, func(i, j int) bool { return t.st.itemSeq[out[i].ID] < t.st.itemSeq[out[j].ID] })
	return out, nil
}

func (t *storeTx) GetCartItem(ctx context.Context, itemID string) (orders.CartItem, error) {
	it, ok := t.st.cartItems[itemID]
	if !ok {
		return orders.CartItem{}, orders.ErrNotFound
	}
	return it, nil
}

func (t *storeTx) UpsertCartItem(ctx context.Context, cartID, productID string, qty int) (orders.CartItem, error) {
	for id, it := range t.st.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity += qty
			t.st.cartItems[id] = it
			return it, nil
		}
	}
	it := orders.CartItem{ID: uuid.NewString(), CartID: cartID, ProductID: productID, Quantity: qty}
	t.st.seq++
	t.st.itemSeq[it.ID] = t.st.seq
	t.st.cartItems[it.ID] = it
	return it, nil
}

func (t *storeTx) SetCartItemQuantity(ctx context.Context, itemID string, qty int) error {
	it, ok := t.st.cartItems[itemID]
	if !ok {
		return orders.ErrNotFound
	}
	it.Quantity = qty
	t.st.cartItems[itemID] = it
	return nil
}

func (t *storeTx) DeleteCartItem(ctx context.Context, itemID string) error {
	if _, ok := t.st.cartItems[itemID]; !ok {
		return orders.ErrNotFound
	}
	delete(t.st.cartItems, itemID)
	delete(t.st.itemSeq, itemID)
	return nil
}

func (t *storeTx) DeleteCartItems(ctx context.Context, cartID string) error {
	for id, it := range t.st.cartItems {
		if it.CartID == cartID {
			delete(t.st.cartItems, id)
			delete(t.st.itemSeq, id)
		}
	}
	return nil
}

func (t *storeTx) GetProduct(ctx context.Context, productID string) (orders.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return p, nil
}

func (t *storeTx) ReserveStock(ctx context.Context, productID string, qty int) (int, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return 0, orders.ErrNotFound
	}
	if p.Stock < qty {
		return 0, &orders.InsufficientStockError{
			ProductID: productID, ProductName: p.Name, Requested: qty, Available: p.Stock,
		}
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	t.st.products[productID] = p
	return p.Stock, nil
}

func (t *storeTx) InsertOrder(ctx context.Context, o orders.Order) error {
	o.Items = nil // items live in their own table
	t.st.orders[o.ID] = o
	return nil
}

func (t *storeTx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	for _, it := range items {
		t.st.orderItems[it.OrderID] = append(t.st.orderItems[it.OrderID], it)
	}
	return nil
}

func (t *storeTx) GetOrderForUpdate(ctx context.Context, orderID string) (orders.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Items = append([]orders.OrderItem(nil), t.st.orderItems[orderID]...)
	return o, nil
}

func (t *storeTx) SetOrderStatus(ctx context.Context, orderID string, status orders.Status) error {
	o, ok := t.st.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	t.st.orders[orderID] = o
	return nil
}
