package entity

import "time"

const (
	OutboxKindBackendWebhook = "backend_webhook"
	OutboxKindGraphQL        = "graphql"
)

const (
	OutboxStatusPending   int32 = 1
	OutboxStatusDelivered int32 = 10
	OutboxStatusFailed    int32 = 20
)

type OutboxDelivery struct {
	ID uint64

	DeliveryID string
	Kind       string
	TargetURL  string
	OrderID    string

	// ExpectedStatus is the backend status the payment had when a graphql
	// update was queued. Replays are skipped once it moved on.
	ExpectedStatus string
	PayloadJSON    string

	Status        int32
	Attempts      int32
	NextAttemptAt *time.Time
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OutboxStats struct {
	Pending   int64
	Delivered int64
	Failed    int64
}
