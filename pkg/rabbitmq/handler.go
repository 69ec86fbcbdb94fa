package rabbitmq

import (
	"encoding/json"
	"fmt"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// orderEventEnvelope holds the fields every order event carries.
type orderEventEnvelope struct {
	Type        string   `json:"type"`
	OrderID     string   `json:"order_id"`
	OrderNumber string   `json:"order_number"`
	Status      string   `json:"status"`
	SellerIDs   []string `json:"seller_ids"`
}

// OrderEventHandler returns a handler that logs order events, e.g. to feed
// seller notifications. Undecodable messages yield ErrMalformedMessage.
func OrderEventHandler(log *zap.Logger) func(msg amqp.Delivery) error {
	if log == nil {
		log = zap.NewNop()
	}
	return func(msg amqp.Delivery) error {
		var event orderEventEnvelope
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if event.OrderID == "" || event.Type == "" {
			return fmt.Errorf("%w: missing type or order_id", ErrMalformedMessage)
		}

		log.Info("order event received",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.String("order_number", event.OrderNumber),
			zap.String("status", event.Status),
			zap.Strings("seller_ids", event.SellerIDs),
			zap.Uint64("delivery_tag", msg.DeliveryTag),
		)
		return nil
	}
}
