package provider

import (
	"strings"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

// MapEpaycoStatus maps x_cod_transaction_state. 3 (Pendiente) and anything
// unknown stay pending.
func MapEpaycoStatus(code string) entity.PaymentStatus {
	switch strings.TrimSpace(code) {
	case "1":
		return entity.PaymentStatusPaid
	case "2", "4":
		return entity.PaymentStatusFailed
	default:
		return entity.PaymentStatusPending
	}
}

func MapMercadoPagoStatus(status string) entity.PaymentStatus {
	switch status {
	case "approved":
		return entity.PaymentStatusCompleted
	case "authorized":
		return entity.PaymentStatusAuthorized
	case "pending", "in_process", "in_mediation":
		return entity.PaymentStatusPending
	case "rejected":
		return entity.PaymentStatusRejected
	case "cancelled":
		return entity.PaymentStatusCancelled
	case "refunded":
		return entity.PaymentStatusRefunded
	case "charged_back":
		return entity.PaymentStatusChargeback
	default:
		return entity.PaymentStatusPending
	}
}
