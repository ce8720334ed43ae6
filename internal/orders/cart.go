package orders

import "context"

// Cart operations live on the same service so they share the store port.
// Mutations run in a unit of work; ownership is checked before any write.

// GetCart returns the user's cart lines, creating the cart on first use.
func (s *Service) GetCart(ctx context.Context, userID string) (Cart, []CartLine, error) {
	var (
		cart  Cart
		lines []CartLine
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		cart, err = tx.CartForUser(ctx, userID)
		if err != nil {
			return err
		}
		lines, err = tx.CartLines(ctx, cart.ID)
		return err
	})
	if err != nil {
		return Cart{}, nil, err
	}
	return cart, lines, nil
}

// AddCartItem adds qty of a product to the user's cart, merging with an
// existing line for the same product.
func (s *Service) AddCartItem(ctx context.Context, userID, productID string, qty int) (CartItem, error) {
	if qty <= 0 {
		return CartItem{}, ErrInvalidQty
	}
	var item CartItem
	err := s.store.WithTx(ctx, func(tx Tx) error {
		cart, err := tx.CartForUser(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		item, err = tx.UpsertCartItem(ctx, cart.ID, productID, qty)
		return err
	})
	if err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// UpdateCartItemQuantity replaces the quantity of one cart line.
func (s *Service) UpdateCartItemQuantity(ctx context.Context, userID, itemID string, qty int) (CartItem, error) {
	if qty <= 0 {
		return CartItem{}, ErrInvalidQty
	}
	var item CartItem
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		item, err = s.ownedCartItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if err := tx.SetCartItemQuantity(ctx, itemID, qty); err != nil {
			return err
		}
		item.Quantity = qty
		return nil
	})
	if err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// RemoveCartItem deletes one cart line.
func (s *Service) RemoveCartItem(ctx context.Context, userID, itemID string) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := s.ownedCartItem(ctx, tx, userID, itemID); err != nil {
			return err
		}
		return tx.DeleteCartItem(ctx, itemID)
	})
}

func (s *Service) ownedCartItem(ctx context.Context, tx Tx, userID, itemID string) (CartItem, error) {
	item, err := tx.GetCartItem(ctx, itemID)
	if err != nil {
		return CartItem{}, err
	}
	cart, err := tx.CartForUser(ctx, userID)
	if err != nil {
		return CartItem{}, err
	}
	if item.CartID != cart.ID {
		s.log.Warn("cart item ownership mismatch", "user_id", userID, "cart_item_id", itemID)
		return CartItem{}, ErrUnauthorized
	}
	return item, nil
}
