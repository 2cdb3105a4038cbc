package types

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

var ErrInvalidMercadoPagoBody = errors.New("invalid webhook body")

type MercadoPagoWebhookRequest struct {
	Type      string
	Action    string
	DataId    string
	Signature string
	RequestId string
	RawBody   string
}

type mercadoPagoWebhookBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

func NewMercadoPagoWebhookRequestFromContext(ctx echo.Context) (*MercadoPagoWebhookRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	req := &MercadoPagoWebhookRequest{
		Signature: strings.TrimSpace(ctx.Request().Header.Get("x-signature")),
		RequestId: strings.TrimSpace(ctx.Request().Header.Get("x-request-id")),
		RawBody:   string(rawBody),
	}

	if len(strings.TrimSpace(string(rawBody))) > 0 {
		var body mercadoPagoWebhookBody
		if err := json.Unmarshal(rawBody, &body); err != nil {
			return nil, ErrInvalidMercadoPagoBody
		}
		req.Type = strings.TrimSpace(body.Type)
		if req.Type == "" {
			req.Type = strings.TrimSpace(body.Topic)
		}
		req.Action = strings.TrimSpace(body.Action)
		req.DataId = rawID(body.Data.ID)
	}

	if req.Type == "" {
		req.Type = strings.TrimSpace(ctx.QueryParam("type"))
	}
	if req.Type == "" {
		req.Type = strings.TrimSpace(ctx.QueryParam("topic"))
	}
	if req.DataId == "" {
		req.DataId = strings.TrimSpace(ctx.QueryParam("data.id"))
	}
	if req.DataId == "" {
		req.DataId = strings.TrimSpace(ctx.QueryParam("id"))
	}

	return req, nil
}

func (r *MercadoPagoWebhookRequest) GetType() string      { return r.Type }
func (r *MercadoPagoWebhookRequest) GetDataId() string    { return r.DataId }
func (r *MercadoPagoWebhookRequest) GetSignature() string { return r.Signature }
func (r *MercadoPagoWebhookRequest) GetRequestId() string { return r.RequestId }
func (r *MercadoPagoWebhookRequest) GetRawBody() string   { return r.RawBody }

// rawID accepts data.id as either a JSON string or a number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

type MercadoPagoWebhookResponse struct {
	Message     string `json:"message"`
	OrderId     string `json:"orderId,omitempty"`
	MpPaymentId string `json:"mpPaymentId,omitempty"`
	Status      string `json:"status,omitempty"`
	ProcessedAt string `json:"processedAt,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

type MercadoPagoErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type MercadoPagoAckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
