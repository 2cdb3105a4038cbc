package provider

import (
	"errors"
	"strings"
)

type SignaturePolicy string

const (
	PolicyStrict     SignaturePolicy = "strict"
	PolicyPermissive SignaturePolicy = "permissive"
)

var (
	ErrSecretNotConfigured = errors.New("signature secret is not configured")
	ErrSignatureMissing    = errors.New("signature is missing")
	ErrSignatureMalformed  = errors.New("signature is malformed")
	ErrSignatureMismatch   = errors.New("signature mismatch")
)

// ParseSignaturePolicy defaults to strict for anything it does not recognise.
func ParseSignaturePolicy(raw string) SignaturePolicy {
	if strings.EqualFold(strings.TrimSpace(raw), string(PolicyPermissive)) {
		return PolicyPermissive
	}
	return PolicyStrict
}

// SignatureCheck is the outcome of verifying a notification. Verified is
// false when verification could not run at all; Err explains why it did not
// pass.
type SignatureCheck struct {
	Valid    bool
	Verified bool
	Err      error
}

func (c SignatureCheck) Accepted(policy SignaturePolicy) bool {
	if policy == PolicyPermissive {
		return true
	}
	return c.Verified && c.Valid
}
