package entity

import "time"

const (
	NotificationStatusReceived     = "received"
	NotificationStatusHandled      = "handled"
	NotificationStatusHandleFailed = "handle_failed"
	NotificationStatusRejected     = "rejected"
)

type NotificationLog struct {
	ID uint64

	Provider          string
	ProviderReference string
	OrderReference    string
	RawStatus         string
	MappedStatus      *string
	SignatureValid    bool
	PayloadJSON       string
	Status            string
	Error             *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
