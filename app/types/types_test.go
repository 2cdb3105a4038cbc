package types

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/labstack/echo/v4"
)

func epaycoForm() url.Values {
	form := url.Values{}
	form.Set("x_ref_payco", "R1")
	form.Set("x_transaction_id", "T1")
	form.Set("x_cod_transaction_state", "1")
	form.Set("x_id_invoice", "ORDER-7")
	form.Set("x_amount", "50000")
	form.Set("x_currency_code", "COP")
	form.Set("x_customer_email", "ana@example.com")
	return form
}

func TestNewEpaycoConfirmationRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/epayco/confirmation", strings.NewReader(epaycoForm().Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewEpaycoConfirmationRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if parsed.Raw["x_amount"] != "50000" {
		t.Fatalf("expected raw form to be kept, got %v", parsed.Raw)
	}

	notification := parsed.ToNotification()
	if notification.Provider != entity.ProviderEpayco || notification.OrderReference != "ORDER-7" || notification.ProviderReference != "R1" {
		t.Fatalf("unexpected notification: %+v", notification)
	}
	if notification.Customer == nil || notification.Customer.Email != "ana@example.com" {
		t.Fatalf("expected customer from form, got %+v", notification.Customer)
	}
}

func TestEpaycoConfirmationValidateRequiredFields(t *testing.T) {
	for _, field := range []string{"x_ref_payco", "x_transaction_id", "x_cod_transaction_state", "x_id_invoice"} {
		t.Run(field, func(t *testing.T) {
			form := epaycoForm()
			form.Del(field)

			e := echo.New()
			req := httptest.NewRequest("POST", "/api/epayco/confirmation", strings.NewReader(form.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			ctx := e.NewContext(req, httptest.NewRecorder())

			parsed, err := NewEpaycoConfirmationRequestFromContext(ctx)
			if err != nil {
				t.Fatalf("expected no parse error, got %v", err)
			}
			if err := parsed.Validate(); !errors.Is(err, ErrMissingEpaycoFields) {
				t.Fatalf("expected ErrMissingEpaycoFields, got %v", err)
			}
		})
	}
}

func TestNewMercadoPagoWebhookRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/webhooks/mercadopago", bytes.NewBufferString(`{"type":"payment","action":"payment.updated","data":{"id":"123456"}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("x-signature", "ts=1,v1=abc")
	req.Header.Set("x-request-id", "mp-req-1")
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewMercadoPagoWebhookRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetType() != "payment" || parsed.GetDataId() != "123456" || parsed.Action != "payment.updated" {
		t.Fatalf("unexpected parsed body: %+v", parsed)
	}
	if parsed.GetSignature() != "ts=1,v1=abc" || parsed.GetRequestId() != "mp-req-1" {
		t.Fatalf("unexpected headers: %+v", parsed)
	}
}

func TestNewMercadoPagoWebhookRequestNumericIDAndQueryFallback(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/webhooks/mercadopago", bytes.NewBufferString(`{"type":"payment","data":{"id":987}}`))
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewMercadoPagoWebhookRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetDataId() != "987" {
		t.Fatalf("expected numeric id to be kept, got %q", parsed.GetDataId())
	}

	req = httptest.NewRequest("POST", "/api/webhooks/mercadopago?topic=payment&id=555", nil)
	ctx = e.NewContext(req, httptest.NewRecorder())
	parsed, err = NewMercadoPagoWebhookRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetType() != "payment" || parsed.GetDataId() != "555" {
		t.Fatalf("expected query fallback, got %+v", parsed)
	}
}

func TestNewMercadoPagoWebhookRequestRejectsMalformedJSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/api/webhooks/mercadopago", bytes.NewBufferString(`{"type":`))
	ctx := e.NewContext(req, httptest.NewRecorder())

	if _, err := NewMercadoPagoWebhookRequestFromContext(ctx); !errors.Is(err, ErrInvalidMercadoPagoBody) {
		t.Fatalf("expected ErrInvalidMercadoPagoBody, got %v", err)
	}
}

func TestNewResolveVariantRequestFromContextTrimsSelection(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/internal/variants/resolve", bytes.NewBufferString(`{"product":{"basePrice":100,"baseStock":5},"combinations":[{"variantIds":["red","M"],"price":120,"stock":3}],"selection":{"axes":{"color":" red ","size":""}}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewResolveVariantRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(parsed.Selection.Axes) != 1 || parsed.Selection.Axes["color"] != "red" {
		t.Fatalf("unexpected selection: %+v", parsed.Selection)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Product.BaseStock = -1
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected negative stock to be rejected")
	}
}

func TestValidateVariantsRequestValidate(t *testing.T) {
	req := &ValidateVariantsRequest{Variants: []entity.VariantAxis{{Type: "color", ID: ""}}}
	if err := req.Validate(); err == nil {
		t.Fatal("expected axis without id to be rejected")
	}
	req.Variants[0].ID = "red"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
