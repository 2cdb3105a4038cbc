package mapper

import (
	"testing"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/emprendyup/ms-go-reconciler/app/variant"
)

func TestBackendWebhookPayload(t *testing.T) {
	result := &entity.NormalizedPaymentResult{
		OrderID:           "ORDER-7",
		Status:            entity.PaymentStatusPaid,
		TransactionID:     "T1",
		ProviderReference: "R1",
		Provider:          entity.ProviderEpayco,
		SignatureValid:    false,
		Amount:            "50000",
		Currency:          "COP",
		ProcessedAt:       time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	notification := &entity.PaymentNotification{
		Customer: &entity.Customer{Email: "ana@example.com"},
		Raw:      map[string]string{"x_ref_payco": "R1"},
	}

	payload := BackendWebhookPayload(result, notification, "Aceptada")
	if payload.OrderId != "ORDER-7" || payload.Status != "PAID" || payload.SignatureValid {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.ProcessedAt != "2026-05-01T12:00:00Z" || payload.TransactionState != "Aceptada" {
		t.Fatalf("unexpected payload metadata: %+v", payload)
	}
	if payload.Customer == nil || payload.RawPayload["x_ref_payco"] != "R1" {
		t.Fatalf("expected customer and raw payload: %+v", payload)
	}

	if BackendWebhookPayload(nil, notification, "") != nil {
		t.Fatal("expected nil payload for nil result")
	}
}

func TestResolutionToResponse(t *testing.T) {
	resp := ResolutionToResponse(
		entity.Resolution{Price: 120, Stock: 0, Matched: true},
		variant.Availability{Reason: variant.ReasonOutOfStock},
	)
	if resp.Price != 120 || resp.Stock != 0 || !resp.Matched || resp.CanAddToCart || resp.Reason != "out_of_stock" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
