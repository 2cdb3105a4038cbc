package provider

import (
	"testing"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

func TestMapEpaycoStatus(t *testing.T) {
	cases := map[string]entity.PaymentStatus{
		"1":  entity.PaymentStatusPaid,
		"2":  entity.PaymentStatusFailed,
		"3":  entity.PaymentStatusPending,
		"4":  entity.PaymentStatusFailed,
		"6":  entity.PaymentStatusPending,
		"":   entity.PaymentStatusPending,
		" 1": entity.PaymentStatusPaid,
	}
	for code, want := range cases {
		if got := MapEpaycoStatus(code); got != want {
			t.Fatalf("code %q: expected %s, got %s", code, want, got)
		}
	}
}

func TestMapMercadoPagoStatus(t *testing.T) {
	cases := map[string]entity.PaymentStatus{
		"approved":     entity.PaymentStatusCompleted,
		"authorized":   entity.PaymentStatusAuthorized,
		"pending":      entity.PaymentStatusPending,
		"in_process":   entity.PaymentStatusPending,
		"in_mediation": entity.PaymentStatusPending,
		"rejected":     entity.PaymentStatusRejected,
		"cancelled":    entity.PaymentStatusCancelled,
		"refunded":     entity.PaymentStatusRefunded,
		"charged_back": entity.PaymentStatusChargeback,
		"APPROVED":     entity.PaymentStatusPending,
		"expired":      entity.PaymentStatusPending,
		"":             entity.PaymentStatusPending,
	}
	for status, want := range cases {
		if got := MapMercadoPagoStatus(status); got != want {
			t.Fatalf("status %q: expected %s, got %s", status, want, got)
		}
	}
}

func TestSignatureCheckAccepted(t *testing.T) {
	unverified := SignatureCheck{Valid: true, Err: ErrSecretNotConfigured}
	if !unverified.Accepted(PolicyPermissive) {
		t.Fatal("permissive policy should accept unverified notifications")
	}
	if unverified.Accepted(PolicyStrict) {
		t.Fatal("strict policy should reject unverified notifications")
	}

	mismatch := SignatureCheck{Verified: true, Err: ErrSignatureMismatch}
	if !mismatch.Accepted(PolicyPermissive) || mismatch.Accepted(PolicyStrict) {
		t.Fatalf("unexpected acceptance for mismatch: %+v", mismatch)
	}

	valid := SignatureCheck{Valid: true, Verified: true}
	if !valid.Accepted(PolicyStrict) {
		t.Fatal("strict policy should accept verified notifications")
	}
}

func TestParseSignaturePolicy(t *testing.T) {
	if ParseSignaturePolicy("Permissive") != PolicyPermissive {
		t.Fatal("expected permissive")
	}
	if ParseSignaturePolicy("strict") != PolicyStrict || ParseSignaturePolicy("") != PolicyStrict {
		t.Fatal("expected strict fallback")
	}
}
