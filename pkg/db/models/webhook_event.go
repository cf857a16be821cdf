package models

import "time"

// WebhookEvent is the durable idempotency record for Stripe deliveries. The
// row is inserted in the same transaction as the event's effects, so a
// redelivered event short-circuits on the primary key.
type WebhookEvent struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Type        string    `gorm:"column:type;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
