package orders

import "context"

// Store is the persistence port. WithTx runs fn inside one atomic unit of
// work: if fn returns an error, every write made through the Tx is rolled
// back, including stock decrements.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// Tx is the set of operations available inside a unit of work. Implementations
// must serialize ReserveStock per product row so concurrent checkouts cannot
// both observe the same stale stock value.
type Tx interface {
	// CartForUser returns the user's cart, creating it on first use.
	CartForUser(ctx context.Context, userID string) (Cart, error)
	CartLines(ctx context.Context, cartID string) ([]CartLine, error)
	GetCartItem(ctx context.Context, itemID string) (CartItem, error)
	UpsertCartItem(ctx context.Context, cartID, productID string, qty int) (CartItem, error)
	SetCartItemQuantity(ctx context.Context, itemID string, qty int) error
	DeleteCartItem(ctx context.Context, itemID string) error
	DeleteCartItems(ctx context.Context, cartID string) error

	GetProduct(ctx context.Context, productID string) (Product, error)
	// ReserveStock decrements stock by qty and returns the remaining stock,
	// or an *InsufficientStockError without touching the row.
	ReserveStock(ctx context.Context, productID string, qty int) (int, error)

	InsertOrder(ctx context.Context, o Order) error
	InsertOrderItems(ctx context.Context, items []OrderItem) error
	// GetOrderForUpdate locks the order row for the rest of the unit of work.
	GetOrderForUpdate(ctx context.Context, orderID string) (Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status Status) error
}
