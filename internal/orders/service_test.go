package orders_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/andrisetiaw/go-storefront/internal/memory"
	"github.com/andrisetiaw/go-storefront/internal/orders"
)

type pubRecorder struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (p *pubRecorder) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, value)
}

func (p *pubRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) (*memory.Store, *orders.Service, *pubRecorder, *pubRecorder) {
	t.Helper()
	store := memory.NewStore()
	created := &pubRecorder{}
	status := &pubRecorder{}
	svc := orders.NewService(store, created, status, "test", discardLogger())
	return store, svc, created, status
}

func seedProduct(store *memory.Store, name, price string, stock int) orders.Product {
	p := orders.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	store.PutProduct(p)
	return p
}

func stockOf(t *testing.T, store *memory.Store, productID string) int {
	t.Helper()
	ps, err := store.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	for _, p := range ps {
		if p.ID == productID {
			return p.Stock
		}
	}
	t.Fatalf("product %s not found", productID)
	return 0
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending order and clears the cart", func(t *testing.T) {
		store, svc, created, _ := newFixture(t)
		p1 := seedProduct(store, "keyboard", "19.99", 10)
		p2 := seedProduct(store, "mouse", "5.25", 3)

		if _, err := svc.AddCartItem(ctx, "u1", p1.ID, 2); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		if _, err := svc.AddCartItem(ctx, "u1", p2.ID, 3); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}

		order, err := svc.Checkout(ctx, "u1")
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		if order.Status != orders.StatusPending {
			t.Errorf("status = %s, want PENDING", order.Status)
		}
		if want := decimal.RequireFromString("55.73"); !order.Total.Equal(want) {
			t.Errorf("total = %s, want %s", order.Total, want)
		}
		if len(order.Items) != 2 {
			t.Fatalf("items = %d, want 2", len(order.Items))
		}
		if !order.Items[0].UnitPrice.Equal(p1.Price) {
			t.Errorf("unit price = %s, want %s", order.Items[0].UnitPrice, p1.Price)
		}

		if got := stockOf(t, store, p1.ID); got != 8 {
			t.Errorf("p1 stock = %d, want 8", got)
		}
		if got := stockOf(t, store, p2.ID); got != 0 {
			t.Errorf("p2 stock = %d, want 0", got)
		}

		_, lines, err := svc.GetCart(ctx, "u1")
		if err != nil {
			t.Fatalf("GetCart: %v", err)
		}
		if len(lines) != 0 {
			t.Errorf("cart should be empty after checkout, has %d lines", len(lines))
		}
		if created.count() != 1 {
			t.Errorf("published %d created events, want 1", created.count())
		}
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		_, svc, created, _ := newFixture(t)
		if _, err := svc.Checkout(ctx, "u1"); !errors.Is(err, orders.ErrEmptyCart) {
			t.Fatalf("expected ErrEmptyCart, got %v", err)
		}
		if created.count() != 0 {
			t.Error("no event should be published for a rejected checkout")
		}
	})

	t.Run("checkout right after checkout is rejected", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		p := seedProduct(store, "cable", "3.00", 5)
		if _, err := svc.AddCartItem(ctx, "u1", p.ID, 1); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		if _, err := svc.Checkout(ctx, "u1"); err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		if _, err := svc.Checkout(ctx, "u1"); !errors.Is(err, orders.ErrEmptyCart) {
			t.Fatalf("expected ErrEmptyCart on second checkout, got %v", err)
		}
	})

	t.Run("failure on a later line rolls back earlier decrements", func(t *testing.T) {
		store, svc, created, _ := newFixture(t)
		p1 := seedProduct(store, "keyboard", "19.99", 10)
		p2 := seedProduct(store, "rare item", "99.99", 1)

		if _, err := svc.AddCartItem(ctx, "u1", p1.ID, 1); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		if _, err := svc.AddCartItem(ctx, "u1", p2.ID, 2); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}

		_, err := svc.Checkout(ctx, "u1")
		var stockErr *orders.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if stockErr.ProductName != "rare item" || stockErr.Requested != 2 || stockErr.Available != 1 {
			t.Errorf("unexpected error detail: %+v", stockErr)
		}

		// earlier decrement restored, nothing persisted
		if got := stockOf(t, store, p1.ID); got != 10 {
			t.Errorf("p1 stock = %d, want 10 after rollback", got)
		}
		if got := stockOf(t, store, p2.ID); got != 1 {
			t.Errorf("p2 stock = %d, want 1 after rollback", got)
		}
		all, _ := store.ListOrders(ctx)
		if len(all) != 0 {
			t.Errorf("no order should be persisted, found %d", len(all))
		}
		_, lines, _ := svc.GetCart(ctx, "u1")
		if len(lines) != 2 {
			t.Errorf("cart should be untouched, has %d lines", len(lines))
		}
		if created.count() != 0 {
			t.Error("no event should be published for a failed checkout")
		}
	})

	t.Run("price changes after checkout do not rewrite the order", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		p := seedProduct(store, "keyboard", "19.99", 10)
		if _, err := svc.AddCartItem(ctx, "u1", p.ID, 1); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		order, err := svc.Checkout(ctx, "u1")
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}

		p.Price = decimal.RequireFromString("39.99")
		store.PutProduct(p)

		got, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetOrder: %v", err)
		}
		if want := decimal.RequireFromString("19.99"); !got.Items[0].UnitPrice.Equal(want) {
			t.Errorf("unit price = %s, want snapshot %s", got.Items[0].UnitPrice, want)
		}
		if !got.Total.Equal(decimal.RequireFromString("19.99")) {
			t.Errorf("total = %s, want 19.99", got.Total)
		}
	})
}

func TestCheckoutConcurrentOversell(t *testing.T) {
	ctx := context.Background()

	t.Run("stock of one, two buyers, exactly one wins", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		p := seedProduct(store, "last unit", "10.00", 1)

		users := []string{"u1", "u2"}
		for _, u := range users {
			if _, err := svc.AddCartItem(ctx, u, p.ID, 1); err != nil {
				t.Fatalf("AddCartItem(%s): %v", u, err)
			}
		}

		var (
			mu        sync.Mutex
			succeeded int
			rejected  int
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, u := range users {
			u := u
			g.Go(func() error {
				_, err := svc.Checkout(gctx, u)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
					return nil
				default:
					var stockErr *orders.InsufficientStockError
					if !errors.As(err, &stockErr) {
						return err
					}
					rejected++
					return nil
				}
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("unexpected checkout error: %v", err)
		}

		if succeeded != 1 || rejected != 1 {
			t.Errorf("succeeded=%d rejected=%d, want 1 and 1", succeeded, rejected)
		}
		if got := stockOf(t, store, p.ID); got != 0 {
			t.Errorf("final stock = %d, want 0", got)
		}
	})

	t.Run("total reserved never exceeds initial stock", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		const initial = 5
		p := seedProduct(store, "limited", "1.00", initial)

		const buyers = 12
		users := make([]string, buyers)
		for i := range users {
			users[i] = uuid.NewString()
			if _, err := svc.AddCartItem(ctx, users[i], p.ID, 1); err != nil {
				t.Fatalf("AddCartItem: %v", err)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		var (
			mu        sync.Mutex
			succeeded int
		)
		for _, u := range users {
			u := u
			g.Go(func() error {
				_, err := svc.Checkout(gctx, u)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return nil
				}
				var stockErr *orders.InsufficientStockError
				if errors.As(err, &stockErr) {
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("unexpected checkout error: %v", err)
		}

		if succeeded != initial {
			t.Errorf("succeeded = %d, want %d", succeeded, initial)
		}
		if got := stockOf(t, store, p.ID); got != 0 {
			t.Errorf("final stock = %d, want 0", got)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	newOrder := func(t *testing.T) (*memory.Store, *orders.Service, *pubRecorder, orders.Order) {
		store, svc, _, status := newFixture(t)
		p := seedProduct(store, "thing", "5.00", 5)
		if _, err := svc.AddCartItem(ctx, "u1", p.ID, 1); err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		order, err := svc.Checkout(ctx, "u1")
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		return store, svc, status, order
	}

	t.Run("valid transition is persisted and published", func(t *testing.T) {
		store, svc, status, order := newOrder(t)
		got, err := svc.UpdateStatus(ctx, order.ID, orders.StatusPaid)
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.Status != orders.StatusPaid {
			t.Errorf("status = %s, want PAID", got.Status)
		}
		stored, _ := store.GetOrder(ctx, order.ID)
		if stored.Status != orders.StatusPaid {
			t.Errorf("stored status = %s, want PAID", stored.Status)
		}
		if status.count() != 1 {
			t.Errorf("published %d status events, want 1", status.count())
		}
	})

	t.Run("same-state transition is a silent no-op", func(t *testing.T) {
		_, svc, status, order := newOrder(t)
		got, err := svc.UpdateStatus(ctx, order.ID, orders.StatusPending)
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.Status != orders.StatusPending {
			t.Errorf("status = %s, want PENDING", got.Status)
		}
		if status.count() != 0 {
			t.Error("no-op transition must not publish")
		}
	})

	t.Run("invalid transition names both states", func(t *testing.T) {
		store, svc, _, order := newOrder(t)
		_, err := svc.UpdateStatus(ctx, order.ID, orders.StatusCompleted)
		var te *orders.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if te.From != orders.StatusPending || te.To != orders.StatusCompleted {
			t.Errorf("error detail = %+v", te)
		}
		stored, _ := store.GetOrder(ctx, order.ID)
		if stored.Status != orders.StatusPending {
			t.Errorf("stored status changed to %s on invalid transition", stored.Status)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		_, svc, _, _ := newFixture(t)
		if _, err := svc.UpdateStatus(ctx, uuid.NewString(), orders.StatusPaid); !errors.Is(err, orders.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestGetOrderOwnership(t *testing.T) {
	ctx := context.Background()
	store, svc, _, _ := newFixture(t)
	p := seedProduct(store, "thing", "5.00", 5)
	if _, err := svc.AddCartItem(ctx, "owner", p.ID, 1); err != nil {
		t.Fatalf("AddCartItem: %v", err)
	}
	order, err := svc.Checkout(ctx, "owner")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if _, err := svc.GetOrder(ctx, "owner", order.ID); err != nil {
		t.Errorf("owner should read own order: %v", err)
	}
	if _, err := svc.GetOrder(ctx, "intruder", order.ID); !errors.Is(err, orders.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetOrder(ctx, "owner", uuid.NewString()); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
