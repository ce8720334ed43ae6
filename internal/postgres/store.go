package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrisetiaw/go-storefront/internal/orders"
)

// Store implements orders.Store on a pgx pool. Monetary columns are
// numeric(10,2); decimals are scanned/bound as text.
type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (orders.Order, error) {
	return getOrder(ctx, s.DB, orderID, "")
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return listOrders(ctx, s.DB, `WHERE user_id=$1`, userID)
}

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	return listOrders(ctx, s.DB, ``)
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, price, stock, created_at, updated_at
                                FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// querier lets the order readers run on the pool or inside a tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getOrder(ctx context.Context, q querier, orderID, lock string) (orders.Order, error) {
	var o orders.Order
	err := q.QueryRow(ctx, `SELECT id, user_id, status, total_price, created_at, updated_at
	                        FROM orders WHERE id=$1`+lock, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, err
	}

	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, product_name, quantity, unit_price
	                           FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return orders.Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func listOrders(ctx context.Context, q querier, where string, args ...any) ([]orders.Order, error) {
	rows, err := q.Query(ctx, `SELECT id, user_id, status, total_price, created_at, updated_at
	                           FROM orders `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type storeTx struct{ tx pgx.Tx }

func (t *storeTx) CartForUser(ctx context.Context, userID string) (orders.Cart, error) {
	var c orders.Cart
	err := t.tx.QueryRow(ctx, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return orders.Cart{}, err
	}

	c.ID = uuid.NewString()
	c.UserID = userID
	err = t.tx.QueryRow(ctx, `INSERT INTO carts(id, user_id) VALUES ($1,$2)
	                          RETURNING created_at, updated_at`, c.ID, userID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return orders.Cart{}, err
	}
	return c, nil
}

func (t *storeTx) CartLines(ctx context.Context, cartID string) ([]orders.CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, p.name, p.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.CartLine
	for rows.Next() {
		var ln orders.CartLine
		if err := rows.Scan(&ln.ID, &ln.CartID, &ln.ProductID, &ln.Quantity, &ln.ProductName, &ln.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func (t *storeTx) GetCartItem(ctx context.Context, itemID string) (orders.CartItem, error) {
	var it orders.CartItem
	err := t.tx.QueryRow(ctx, `SELECT id, cart_id, product_id, quantity FROM cart_items WHERE id=$1`, itemID).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.CartItem{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.CartItem{}, err
	}
	return it, nil
}

func (t *storeTx) UpsertCartItem(ctx context.Context, cartID, productID string, qty int) (orders.CartItem, error) {
	var it orders.CartItem
	err := t.tx.QueryRow(ctx, `
		INSERT INTO cart_items(id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, cart_id, product_id, quantity`,
		uuid.NewString(), cartID, productID, qty).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if err != nil {
		return orders.CartItem{}, err
	}
	return it, nil
}

func (t *storeTx) SetCartItemQuantity(ctx context.Context, itemID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE cart_items SET quantity=$2, updated_at=NOW() WHERE id=$1`, itemID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *storeTx) DeleteCartItem(ctx context.Context, itemID string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, itemID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func (t *storeTx) DeleteCartItems(ctx context.Context, cartID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}

func (t *storeTx) GetProduct(ctx context.Context, productID string) (orders.Product, error) {
	var p orders.Product
	err := t.tx.QueryRow(ctx, `SELECT id, name, price, stock, created_at, updated_at
	                           FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

// ReserveStock locks the product row so concurrent checkouts against the same
// product serialize here; the row lock is held until the tx commits or rolls
// back.
func (t *storeTx) ReserveStock(ctx context.Context, productID string, qty int) (int, error) {
	var (
		stock int
		name  string
	)
	err := t.tx.QueryRow(ctx, `SELECT stock, name FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&stock, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, orders.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if stock < qty {
		return 0, &orders.InsufficientStockError{
			ProductID: productID, ProductName: name, Requested: qty, Available: stock,
		}
	}
	if _, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id=$1`,
		productID, qty); err != nil {
		return 0, err
	}
	return stock - qty, nil
}

func (t *storeTx) InsertOrder(ctx context.Context, o orders.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		o.ID, o.UserID, o.Status, o.Total, o.CreatedAt)
	return err
}

func (t *storeTx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (t *storeTx) GetOrderForUpdate(ctx context.Context, orderID string) (orders.Order, error) {
	return getOrder(ctx, t.tx, orderID, " FOR UPDATE")
}

func (t *storeTx) SetOrderStatus(ctx context.Context, orderID string, status orders.Status) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, orderID, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}
