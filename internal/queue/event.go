// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and consumer.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// CouponsGeneratedEvent is published when a batch's lot has been written.
// It contains enough for downstream consumers (auto QC, print spooling)
// to act without querying the primary database.
type CouponsGeneratedEvent struct {
	EventID      string  `json:"event_id"`
	BatchID      uint64  `json:"batch_id"`
	BatchNumber  uint64  `json:"batch_number"`
	TotalCoupons int     `json:"total_coupons"`
	Winners      int     `json:"winners"`
	GeneratedBy  string  `json:"generated_by"`
	UserID       *uint64 `json:"generated_by_user_id,omitempty"`
	OccurredAt   string  `json:"occurred_at"`
}

// QCCompletedEvent is published after a QC run has been recorded.
type QCCompletedEvent struct {
	EventID     string            `json:"event_id"`
	BatchID     uint64            `json:"batch_id"`
	BatchNumber uint64            `json:"batch_number"`
	Status      string            `json:"status"`
	Results     map[string]string `json:"results"`
	ValidatedBy string            `json:"validated_by"`
	OccurredAt  string            `json:"occurred_at"`
}

// NewEventID returns a random identifier for an outgoing event.
func NewEventID() string { return uuid.NewString() }

// Timestamp formats t the way events carry times.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
