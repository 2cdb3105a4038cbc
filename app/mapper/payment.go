package mapper

import (
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/emprendyup/ms-go-reconciler/app/types"
)

func BackendWebhookPayload(result *entity.NormalizedPaymentResult, notification *entity.PaymentNotification, transactionState string) *types.BackendWebhookPayload {
	if result == nil {
		return nil
	}

	payload := &types.BackendWebhookPayload{
		OrderId:           result.OrderID,
		Status:            string(result.Status),
		TransactionId:     result.TransactionID,
		ProviderReference: result.ProviderReference,
		Amount:            result.Amount,
		Currency:          result.Currency,
		SignatureValid:    result.SignatureValid,
		Provider:          string(result.Provider),
		TransactionState:  transactionState,
		ProcessedAt:       result.ProcessedAt.UTC().Format(time.RFC3339),
	}
	if notification != nil {
		payload.Customer = notification.Customer
		payload.RawPayload = notification.Raw
	}

	return payload
}

func EpaycoConfirmationResponse(result *entity.NormalizedPaymentResult, transactionState string) *types.EpaycoConfirmationResponse {
	return &types.EpaycoConfirmationResponse{
		Success:          true,
		Message:          "Confirmación procesada",
		OrderId:          result.OrderID,
		Status:           string(result.Status),
		TransactionState: transactionState,
		EpaycoReference:  result.ProviderReference,
		SignatureValid:   result.SignatureValid,
	}
}

func MercadoPagoWebhookResponse(result *entity.NormalizedPaymentResult, message string) *types.MercadoPagoWebhookResponse {
	return &types.MercadoPagoWebhookResponse{
		Message:     message,
		OrderId:     result.OrderID,
		MpPaymentId: result.TransactionID,
		Status:      string(result.Status),
		ProcessedAt: result.ProcessedAt.UTC().Format(time.RFC3339),
	}
}
