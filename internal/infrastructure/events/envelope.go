package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"

	envelopeVersion = 1
)

// Envelope wraps every message published by the service.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderStatusPayload is the body of OrderCreated and OrderStatusChanged.
// FromStatus is empty for OrderCreated.
type OrderStatusPayload struct {
	OrderID           string `json:"order_id"`
	BuyerID           string `json:"buyer_id"`
	FromStatus        string `json:"from_status,omitempty"`
	ToStatus          string `json:"to_status"`
	ActorID           string `json:"actor_id,omitempty"`
	Total             string `json:"total"`
	PaymentAmount     string `json:"payment_amount"`
	PaymentPercentage int    `json:"payment_percentage"`
	Currency          string `json:"currency"`
}

// NewEnvelope builds an envelope with a fresh id. The order id doubles as the
// correlation id and partition key.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload interface{}, at time.Time) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       body,
	}, nil
}
