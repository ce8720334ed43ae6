package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/andrisetiaw/go-storefront/internal/orders"
)

func TestCartOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("adding the same product merges quantities", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		p := seedProduct(store, "keyboard", "19.99", 10)

		first, err := svc.AddCartItem(ctx, "u1", p.ID, 2)
		if err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		second, err := svc.AddCartItem(ctx, "u1", p.ID, 3)
		if err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		if second.ID != first.ID {
			t.Error("expected the same cart line to be reused")
		}
		if second.Quantity != 5 {
			t.Errorf("quantity = %d, want 5", second.Quantity)
		}

		_, lines, err := svc.GetCart(ctx, "u1")
		if err != nil {
			t.Fatalf("GetCart: %v", err)
		}
		if len(lines) != 1 {
			t.Fatalf("lines = %d, want 1", len(lines))
		}
		if want := "99.95"; lines[0].Extended().String() != want {
			t.Errorf("extended = %s, want %s", lines[0].Extended(), want)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		_, svc, _, _ := newFixture(t)
		if _, err := svc.AddCartItem(ctx, "u1", uuid.NewString(), 1); !errors.Is(err, orders.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("non-positive quantities are rejected", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		p := seedProduct(store, "keyboard", "19.99", 10)

		if _, err := svc.AddCartItem(ctx, "u1", p.ID, 0); !errors.Is(err, orders.ErrInvalidQty) {
			t.Errorf("add qty 0: expected ErrInvalidQty, got %v", err)
		}
		item, err := svc.AddCartItem(ctx, "u1", p.ID, 1)
		if err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}
		if _, err := svc.UpdateCartItemQuantity(ctx, "u1", item.ID, -1); !errors.Is(err, orders.ErrInvalidQty) {
			t.Errorf("update qty -1: expected ErrInvalidQty, got %v", err)
		}
	})

	t.Run("update and remove enforce ownership", func(t *testing.T) {
		store, svc, _, _ := newFixture(t)
		p := seedProduct(store, "keyboard", "19.99", 10)
		item, err := svc.AddCartItem(ctx, "owner", p.ID, 1)
		if err != nil {
			t.Fatalf("AddCartItem: %v", err)
		}

		if _, err := svc.UpdateCartItemQuantity(ctx, "intruder", item.ID, 4); !errors.Is(err, orders.ErrUnauthorized) {
			t.Errorf("update: expected ErrUnauthorized, got %v", err)
		}
		if err := svc.RemoveCartItem(ctx, "intruder", item.ID); !errors.Is(err, orders.ErrUnauthorized) {
			t.Errorf("remove: expected ErrUnauthorized, got %v", err)
		}

		updated, err := svc.UpdateCartItemQuantity(ctx, "owner", item.ID, 4)
		if err != nil {
			t.Fatalf("owner update: %v", err)
		}
		if updated.Quantity != 4 {
			t.Errorf("quantity = %d, want 4", updated.Quantity)
		}

		if err := svc.RemoveCartItem(ctx, "owner", item.ID); err != nil {
			t.Fatalf("owner remove: %v", err)
		}
		_, lines, _ := svc.GetCart(ctx, "owner")
		if len(lines) != 0 {
			t.Errorf("cart should be empty, has %d lines", len(lines))
		}
	})

	t.Run("missing item", func(t *testing.T) {
		_, svc, _, _ := newFixture(t)
		if _, err := svc.UpdateCartItemQuantity(ctx, "u1", uuid.NewString(), 2); !errors.Is(err, orders.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := svc.RemoveCartItem(ctx, "u1", uuid.NewString()); !errors.Is(err, orders.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
