package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/andrisetiaw/go-storefront/internal/kafka"
)

// Publisher is what the service needs from an event producer. The kafka
// producer satisfies it; tests plug in a recorder, and nil disables publishing.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	store         Store
	createdEvents Publisher
	statusEvents  Publisher
	producerName  string
	log           *slog.Logger
}

func NewService(store Store, created, status Publisher, producerName string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:         store,
		createdEvents: created,
		statusEvents:  status,
		producerName:  producerName,
		log:           log,
	}
}

// Checkout converts the user's cart into a PENDING order. The whole operation
// is one unit of work: cart resolution, per-line stock reservation, order and
// order-item inserts, and cart clearing either all commit or all roll back.
func (s *Service) Checkout(ctx context.Context, userID string) (Order, error) {
	var order Order
	err := s.store.WithTx(ctx, func(tx Tx) error {
		cart, err := tx.CartForUser(ctx, userID)
		if err != nil {
			return err
		}
		lines, err := tx.CartLines(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		now := time.Now().UTC()
		order = Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			Status:    StatusPending,
			Total:     decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}

		items := make([]OrderItem, 0, len(lines))
		for _, ln := range lines {
			if _, err := tx.ReserveStock(ctx, ln.ProductID, ln.Quantity); err != nil {
				return err
			}
			order.Total = order.Total.Add(ln.Extended())
			items = append(items, OrderItem{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				ProductID:   ln.ProductID,
				ProductName: ln.ProductName,
				Quantity:    ln.Quantity,
				UnitPrice:   ln.UnitPrice,
			})
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, items); err != nil {
			return err
		}
		if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total.String())
	s.publishCreated(order)
	return order, nil
}

// UpdateStatus applies the order state machine and persists the new status.
// A transition to the current status is a no-op success; only a real change
// is written and published.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status) (Order, error) {
	var (
		order   Order
		from    Status
		changed bool
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		cur, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = cur.Status
		if err := Transition(cur.Status, to); err != nil {
			return err
		}
		order = cur
		if cur.Status == to {
			return nil
		}
		if err := tx.SetOrderStatus(ctx, orderID, to); err != nil {
			return err
		}
		order.Status = to
		order.UpdatedAt = time.Now().UTC()
		changed = true
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if changed {
		s.log.Info("order status changed", "order_id", orderID, "from", from, "to", to)
		s.publishStatusChanged(orderID, from, to)
	}
	return order, nil
}

// GetOrder returns the order only to its owner.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, ErrUnauthorized
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

func (s *Service) ListAllOrders(ctx context.Context) ([]Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) publishCreated(o Order) {
	if s.createdEvents == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producerName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderID: o.ID, UserID: o.UserID, Status: o.Status, Total: o.Total, Items: o.Items,
		}),
	}
	s.createdEvents.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishStatusChanged(orderID string, from, to Status) {
	if s.statusEvents == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.producerName,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(OrderStatusChangedPayload{
			OrderID: orderID, From: from, To: to,
		}),
	}
	s.statusEvents.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
