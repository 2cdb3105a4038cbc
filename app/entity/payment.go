package entity

import "time"

type Provider string

const (
	ProviderEpayco      Provider = "EPAYCO"
	ProviderMercadoPago Provider = "MERCADOPAGO"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusPaid       PaymentStatus = "PAID"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusChargeback PaymentStatus = "CHARGEBACK"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusRejected   PaymentStatus = "REJECTED"
)

type Customer struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// PaymentNotification is the canonical form of an inbound provider
// notification. Provider-specific payloads are converted into it at the
// boundary.
type PaymentNotification struct {
	Provider          Provider
	ProviderReference string
	OrderReference    string
	TransactionID     string
	RawStatusCode     string
	StatusDetail      string
	Amount            string
	Currency          string
	Signature         string
	Customer          *Customer
	Raw               map[string]string
}

type NormalizedPaymentResult struct {
	OrderID           string        `json:"orderId"`
	Status            PaymentStatus `json:"status"`
	TransactionID     string        `json:"transactionId"`
	ProviderReference string        `json:"providerReference"`
	Provider          Provider      `json:"provider"`
	SignatureValid    bool          `json:"signatureValid"`
	Amount            string        `json:"amount"`
	Currency          string        `json:"currency"`
	ProcessedAt       time.Time     `json:"processedAt"`
}

// PaymentRecord is the order backend's view of a payment.
type PaymentRecord struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"orderId"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId"`
}

type PaymentUpdate struct {
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	ErrorCode     *string       `json:"errorCode,omitempty"`
	ErrorMessage  *string       `json:"errorMessage,omitempty"`
}
