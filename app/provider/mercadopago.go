package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
)

const defaultMercadoPagoBaseURL = "https://api.mercadopago.com"

type MercadoPagoConfig struct {
	AccessToken   string
	WebhookSecret string
	APIBaseURL    string
	Policy        SignaturePolicy
	HTTPTimeout   time.Duration
}

type MercadoPagoProvider struct {
	cfg       MercadoPagoConfig
	payments  payment.Client
	clientErr error
}

type MercadoPagoPayment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

func (p *MercadoPagoPayment) IDString() string {
	if p == nil || p.ID == 0 {
		return ""
	}
	return strconv.FormatInt(p.ID, 10)
}

func NewMercadoPagoProvider(cfg MercadoPagoConfig) *MercadoPagoProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultMercadoPagoBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}

	p := &MercadoPagoProvider{cfg: cfg}
	if strings.TrimSpace(cfg.AccessToken) != "" {
		p.payments, p.clientErr = newMercadoPagoPaymentClient(cfg, timeout)
	}
	return p
}

func (p *MercadoPagoProvider) Code() entity.Provider {
	return entity.ProviderMercadoPago
}

func (p *MercadoPagoProvider) Policy() SignaturePolicy {
	return p.cfg.Policy
}

// VerifySignature validates the x-signature header ("ts=<unix>,v1=<hex>")
// against HMAC-SHA256 of the manifest built from data.id, x-request-id and ts.
func (p *MercadoPagoProvider) VerifySignature(signatureHeader, requestID, dataID string) SignatureCheck {
	secret := strings.TrimSpace(p.cfg.WebhookSecret)
	if secret == "" {
		return SignatureCheck{Err: ErrSecretNotConfigured}
	}
	signatureHeader = strings.TrimSpace(signatureHeader)
	requestID = strings.TrimSpace(requestID)
	if signatureHeader == "" || requestID == "" {
		return SignatureCheck{Err: ErrSignatureMissing}
	}

	ts, v1 := parseMercadoPagoSignature(signatureHeader)
	if ts == "" || v1 == "" {
		return SignatureCheck{Err: ErrSignatureMalformed}
	}
	candidate, err := hex.DecodeString(v1)
	if err != nil {
		return SignatureCheck{Err: ErrSignatureMalformed}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(mercadoPagoManifest(dataID, requestID, ts)))
	if !hmac.Equal(candidate, mac.Sum(nil)) {
		return SignatureCheck{Verified: true, Err: ErrSignatureMismatch}
	}

	return SignatureCheck{Valid: true, Verified: true}
}

// GetPayment fetches a payment through the MercadoPago payments API.
func (p *MercadoPagoProvider) GetPayment(ctx context.Context, paymentID string) (*MercadoPagoPayment, error) {
	if strings.TrimSpace(p.cfg.AccessToken) == "" {
		return nil, errors.New("mercadopago access token is not configured")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, errors.New("mercadopago payment id is empty")
	}
	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return nil, fmt.Errorf("mercadopago payment id %q is not numeric", paymentID)
	}
	if p.payments == nil {
		return nil, fmt.Errorf("mercadopago client: %w", p.clientErr)
	}

	resp, err := p.payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mercadopago get payment failed: %w", err)
	}

	payment := &MercadoPagoPayment{
		ID:                int64(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		TransactionAmount: resp.TransactionAmount,
		CurrencyID:        resp.CurrencyID,
	}
	payment.Payer.Email = resp.Payer.Email

	return payment, nil
}

// baseURLTransport points SDK requests at a non-default API host.
type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.URL.Path = strings.TrimRight(t.base.Path, "/") + req.URL.Path
	out.Host = t.base.Host
	return t.next.RoundTrip(out)
}

func newMercadoPagoPaymentClient(cfg MercadoPagoConfig, timeout time.Duration) (payment.Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	if cfg.APIBaseURL != defaultMercadoPagoBaseURL {
		base, err := url.Parse(cfg.APIBaseURL)
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("invalid mercadopago api base url %q", cfg.APIBaseURL)
		}
		httpClient.Transport = &baseURLTransport{base: base, next: http.DefaultTransport}
	}

	sdkConfig, err := mpconfig.New(cfg.AccessToken, mpconfig.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return payment.NewClient(sdkConfig), nil
}

func parseMercadoPagoSignature(header string) (string, string) {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}

// mercadoPagoManifest builds "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
// Segments with empty values are dropped and alphanumeric ids are lower-cased.
func mercadoPagoManifest(dataID, requestID, ts string) string {
	dataID = strings.TrimSpace(dataID)
	if isAlphanumeric(dataID) {
		dataID = strings.ToLower(dataID)
	}

	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + dataID + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

func isAlphanumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
