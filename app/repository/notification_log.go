package repository

import (
	"context"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

type NotificationLogRepository struct {
	db DBTX
}

func NewNotificationLogRepository(db DBTX) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Create(ctx context.Context, item *entity.NotificationLog) error {
	query := `
		INSERT INTO payment_notifications (
			provider, provider_reference, order_reference, raw_status, mapped_status,
			signature_valid, payload_json, status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		item.Provider,
		item.ProviderReference,
		item.OrderReference,
		item.RawStatus,
		nullableStringValue(item.MappedStatus),
		item.SignatureValid,
		item.PayloadJSON,
		item.Status,
		nullableStringValue(item.Error),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = uint64(id)

	return nil
}

func (r *NotificationLogRepository) UpdateOutcome(ctx context.Context, item *entity.NotificationLog) error {
	query := `
		UPDATE payment_notifications SET
			order_reference = ?,
			raw_status = ?,
			mapped_status = ?,
			signature_valid = ?,
			status = ?,
			error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		item.OrderReference,
		item.RawStatus,
		nullableStringValue(item.MappedStatus),
		item.SignatureValid,
		item.Status,
		nullableStringValue(item.Error),
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}
