// Package events publishes domain events (order placement, coupon
// redemption) to a message broker.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeOrderPlaced    = "order.placed"
	TypeCouponRedeemed = "coupon.redeemed"
)

// Event is a domain event. Key selects the partition so events about the
// same aggregate stay ordered.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ...Event) error { return nil }
