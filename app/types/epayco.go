package types

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/labstack/echo/v4"
)

const MissingEpaycoFieldsMessage = "Parámetros obligatorios faltantes"

var ErrMissingEpaycoFields = errors.New(MissingEpaycoFieldsMessage)

type EpaycoConfirmationRequest struct {
	RefPayco            string
	TransactionId       string
	CodTransactionState string
	IdInvoice           string
	Amount              string
	CurrencyCode        string
	Signature           string
	CustIdCliente       string
	TransactionState    string
	ResponseReasonText  string
	CustomerEmail       string
	CustomerName        string
	Raw                 map[string]string
}

func NewEpaycoConfirmationRequestFromContext(ctx echo.Context) (*EpaycoConfirmationRequest, error) {
	form, err := ctx.FormParams()
	if err != nil {
		return nil, err
	}

	raw := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}

	field := func(name string) string {
		return strings.TrimSpace(raw[name])
	}

	return &EpaycoConfirmationRequest{
		RefPayco:            field("x_ref_payco"),
		TransactionId:       field("x_transaction_id"),
		CodTransactionState: field("x_cod_transaction_state"),
		IdInvoice:           field("x_id_invoice"),
		Amount:              field("x_amount"),
		CurrencyCode:        field("x_currency_code"),
		Signature:           field("x_signature"),
		CustIdCliente:       field("x_cust_id_cliente"),
		TransactionState:    field("x_transaction_state"),
		ResponseReasonText:  field("x_response_reason_text"),
		CustomerEmail:       field("x_customer_email"),
		CustomerName:        field("x_customer_name"),
		Raw:                 raw,
	}, nil
}

func (r *EpaycoConfirmationRequest) Validate() error {
	if r.RefPayco == "" || r.TransactionId == "" || r.CodTransactionState == "" || r.IdInvoice == "" {
		return ErrMissingEpaycoFields
	}
	return nil
}

func (r *EpaycoConfirmationRequest) GetTransactionState() string {
	return r.TransactionState
}

func (r *EpaycoConfirmationRequest) ToNotification() *entity.PaymentNotification {
	notification := &entity.PaymentNotification{
		Provider:          entity.ProviderEpayco,
		ProviderReference: r.RefPayco,
		OrderReference:    r.IdInvoice,
		TransactionID:     r.TransactionId,
		RawStatusCode:     r.CodTransactionState,
		StatusDetail:      r.ResponseReasonText,
		Amount:            r.Amount,
		Currency:          r.CurrencyCode,
		Signature:         r.Signature,
		Raw:               r.Raw,
	}
	if r.CustomerEmail != "" || r.CustomerName != "" {
		notification.Customer = &entity.Customer{Email: r.CustomerEmail, Name: r.CustomerName}
	}
	return notification
}

// RawJSON returns the submitted form as a JSON object.
func (r *EpaycoConfirmationRequest) RawJSON() string {
	encoded, err := json.Marshal(r.Raw)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

type EpaycoConfirmationResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	OrderId          string          `json:"orderId"`
	Status           string          `json:"status"`
	TransactionState string          `json:"transactionState"`
	EpaycoReference  string          `json:"epaycoReference"`
	SignatureValid   bool            `json:"signatureValid"`
	BackendResponse  json.RawMessage `json:"backendResponse,omitempty"`
	Warning          string          `json:"warning,omitempty"`
}

type EpaycoErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type EpaycoAckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// BackendWebhookPayload is what the order backend receives for an ePayco
// confirmation.
type BackendWebhookPayload struct {
	OrderId           string            `json:"orderId"`
	Status            string            `json:"status"`
	TransactionId     string            `json:"transactionId"`
	ProviderReference string            `json:"providerReference"`
	Amount            string            `json:"amount"`
	Currency          string            `json:"currency"`
	SignatureValid    bool              `json:"signatureValid"`
	Provider          string            `json:"provider"`
	TransactionState  string            `json:"transactionState,omitempty"`
	ProcessedAt       string            `json:"processedAt"`
	Customer          *entity.Customer  `json:"customer,omitempty"`
	RawPayload        map[string]string `json:"rawPayload,omitempty"`
}
