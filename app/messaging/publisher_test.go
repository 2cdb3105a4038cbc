package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

type fakePublishClient struct {
	routingKey string
	msg        amqp.Publishing
	err        error
}

func (f *fakePublishClient) Publish(routingKey string, msg amqp.Publishing) error {
	f.routingKey = routingKey
	f.msg = msg
	return f.err
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		provider entity.Provider
		status   entity.PaymentStatus
		want     string
	}{
		{entity.ProviderEpayco, entity.PaymentStatusPaid, "payments.epayco.paid"},
		{entity.ProviderMercadoPago, entity.PaymentStatusChargeback, "payments.mercadopago.chargeback"},
	}
	for _, tt := range tests {
		if got := RoutingKey(tt.provider, tt.status); got != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestPublishPaymentResult(t *testing.T) {
	client := &fakePublishClient{}
	publisher := NewPaymentEventPublisher(client)

	result := &entity.NormalizedPaymentResult{
		OrderID:     "ORDER-7",
		Status:      entity.PaymentStatusPaid,
		Provider:    entity.ProviderEpayco,
		ProcessedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := publisher.PublishPaymentResult(context.Background(), result); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if client.routingKey != "payments.epayco.paid" {
		t.Fatalf("unexpected routing key: %s", client.routingKey)
	}
	if client.msg.DeliveryMode != amqp.Persistent || client.msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing: %+v", client.msg)
	}
	if _, err := uuid.Parse(client.msg.MessageId); err != nil {
		t.Fatalf("expected uuid message id, got %q", client.msg.MessageId)
	}
	if client.msg.Headers["order_id"] != "ORDER-7" || client.msg.Headers["provider"] != "EPAYCO" {
		t.Fatalf("unexpected headers: %v", client.msg.Headers)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(client.msg.Body, &decoded); err != nil {
		t.Fatalf("expected json body: %v", err)
	}
	if decoded["orderId"] != "ORDER-7" || decoded["status"] != "PAID" {
		t.Fatalf("unexpected body: %v", decoded)
	}
}

func TestPublishPaymentResultPropagatesClientError(t *testing.T) {
	publisher := NewPaymentEventPublisher(&fakePublishClient{err: ErrNotConnected})
	err := publisher.PublishPaymentResult(context.Background(), &entity.NormalizedPaymentResult{Provider: entity.ProviderEpayco})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestRabbitMQClientPublishWithoutConnection(t *testing.T) {
	client := NewRabbitMQClient(RabbitMQConfig{URL: "amqp://localhost", Exchange: "payments.events"})
	if client.IsConnected() {
		t.Fatal("expected client to start disconnected")
	}
	if err := client.Publish("payments.epayco.paid", amqp.Publishing{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("expected close without connection to succeed, got %v", err)
	}
}
