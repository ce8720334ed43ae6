package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/andrisetiaw/go-storefront/internal/kafka"
	"github.com/andrisetiaw/go-storefront/internal/orders"
	"github.com/andrisetiaw/go-storefront/internal/redisx"
)

// Refresher keeps the Redis order-status cache in step with published order
// events, so status reads stay warm without hitting the database.
type Refresher struct {
	Redis *redis.Client
	Log   *slog.Logger
}

// HandleEvent is mounted as the consumer handler for both order topics.
func (r *Refresher) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	var (
		orderID string
		status  orders.Status
	)
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, status = p.OrderID, p.Status
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, status = p.OrderID, p.To
	default:
		return nil // not ours
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]any{"status": status})
	if err := r.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	r.Log.Debug("status cache refreshed", "order_id", orderID, "status", status)
	return nil
}
