package provider

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

type EpaycoConfig struct {
	PrivateKey string
	Policy     SignaturePolicy
}

type EpaycoProvider struct {
	cfg EpaycoConfig
}

func NewEpaycoProvider(cfg EpaycoConfig) *EpaycoProvider {
	if cfg.Policy == "" {
		cfg.Policy = PolicyPermissive
	}
	return &EpaycoProvider{cfg: cfg}
}

func (p *EpaycoProvider) Code() entity.Provider {
	return entity.ProviderEpayco
}

func (p *EpaycoProvider) Policy() SignaturePolicy {
	return p.cfg.Policy
}

// VerifySignature checks x_signature against the configured private key.
// Without a key the notification is reported valid but unverified.
func (p *EpaycoProvider) VerifySignature(notification *entity.PaymentNotification) SignatureCheck {
	key := strings.TrimSpace(p.cfg.PrivateKey)
	if key == "" {
		return SignatureCheck{Valid: true, Err: ErrSecretNotConfigured}
	}

	provided := strings.ToLower(strings.TrimSpace(notification.Signature))
	if provided == "" {
		return SignatureCheck{Verified: true, Err: ErrSignatureMissing}
	}

	custID := ""
	if notification.Raw != nil {
		custID = notification.Raw["x_cust_id_cliente"]
	}
	expected := EpaycoSignature(custID, notification.Currency, notification.Amount, notification.ProviderReference, key)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
		return SignatureCheck{Verified: true, Err: ErrSignatureMismatch}
	}

	return SignatureCheck{Valid: true, Verified: true}
}

func EpaycoSignature(custID, currency, amount, providerReference, privateKey string) string {
	raw := strings.Join([]string{custID, currency, amount, providerReference, privateKey}, "^")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
