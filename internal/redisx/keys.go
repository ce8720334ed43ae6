package redisx

import "time"

const (
	// Order status read cache: order_status:{order_id} -> JSON {"status": "..."}
	KeyOrderStatus = "order_status:%s"
)

var TTLStatusCache = 5 * time.Minute
