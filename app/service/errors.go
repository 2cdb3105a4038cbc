package service

import "errors"

var (
	ErrInvalidRequest            = errors.New("invalid request")
	ErrInvalidSignature          = errors.New("invalid signature")
	ErrMissingPaymentID          = errors.New("missing payment id")
	ErrMissingExternalReference  = errors.New("missing external reference")
	ErrProviderLookupFailed      = errors.New("provider lookup failed")
	ErrInvalidVariantCombination = errors.New("invalid variant combination")
	ErrOutboxDisabled            = errors.New("outbox is disabled")
)
