package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

type publishClient interface {
	Publish(routingKey string, msg amqp.Publishing) error
}

type PaymentEventPublisher struct {
	client publishClient
}

func NewPaymentEventPublisher(client publishClient) *PaymentEventPublisher {
	return &PaymentEventPublisher{client: client}
}

// RoutingKey builds payments.<provider>.<status> in lower case.
func RoutingKey(provider entity.Provider, status entity.PaymentStatus) string {
	return fmt.Sprintf("payments.%s.%s", strings.ToLower(string(provider)), strings.ToLower(string(status)))
}

func (p *PaymentEventPublisher) PublishPaymentResult(ctx context.Context, result *entity.NormalizedPaymentResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("payment event serialization error: %w", err)
	}

	timestamp := result.ProcessedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	err = p.client.Publish(RoutingKey(result.Provider, result.Status), amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    timestamp,
		Headers: amqp.Table{
			"order_id": result.OrderID,
			"provider": string(result.Provider),
		},
	})
	if err != nil {
		return fmt.Errorf("payment event publish error: %w", err)
	}

	return nil
}
