package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

const outboxColumns = `
	id, delivery_id, kind, target_url, order_id, expected_status, payload_json,
	status, attempts, next_attempt_at, last_error, created_at, updated_at
`

type OutboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, delivery *entity.OutboxDelivery) error {
	query := `
		INSERT INTO outbox_deliveries (
			delivery_id, kind, target_url, order_id, expected_status, payload_json,
			status, attempts, next_attempt_at, last_error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		delivery.DeliveryID,
		delivery.Kind,
		delivery.TargetURL,
		delivery.OrderID,
		delivery.ExpectedStatus,
		delivery.PayloadJSON,
		delivery.Status,
		delivery.Attempts,
		nullableTimeValue(delivery.NextAttemptAt),
		nullableStringValue(delivery.LastError),
		delivery.CreatedAt,
		delivery.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDeliveryAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	delivery.ID = uint64(id)

	return nil
}

func (r *OutboxRepository) Update(ctx context.Context, delivery *entity.OutboxDelivery) error {
	query := `
		UPDATE outbox_deliveries SET
			status = ?,
			attempts = ?,
			next_attempt_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		delivery.Status,
		delivery.Attempts,
		nullableTimeValue(delivery.NextAttemptAt),
		nullableStringValue(delivery.LastError),
		delivery.UpdatedAt,
		delivery.ID,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

func (r *OutboxRepository) ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.OutboxDelivery, error) {
	query := `SELECT ` + outboxColumns + `
		FROM outbox_deliveries
		WHERE status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC, id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.OutboxStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.OutboxDelivery, 0)
	for rows.Next() {
		item, err := scanOutboxDelivery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *OutboxRepository) Stats(ctx context.Context) (*entity.OutboxStats, error) {
	query := `SELECT status, COUNT(*) FROM outbox_deliveries GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &entity.OutboxStats{}
	for rows.Next() {
		var status int32
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case entity.OutboxStatusPending:
			stats.Pending = count
		case entity.OutboxStatusDelivered:
			stats.Delivered = count
		case entity.OutboxStatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func scanOutboxDelivery(rows *sql.Rows) (*entity.OutboxDelivery, error) {
	var (
		item          entity.OutboxDelivery
		nextAttemptAt sql.NullTime
		lastError     sql.NullString
	)
	if err := rows.Scan(
		&item.ID,
		&item.DeliveryID,
		&item.Kind,
		&item.TargetURL,
		&item.OrderID,
		&item.ExpectedStatus,
		&item.PayloadJSON,
		&item.Status,
		&item.Attempts,
		&nextAttemptAt,
		&lastError,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.NextAttemptAt = timePtrFromNull(nextAttemptAt)
	item.LastError = stringPtrFromNull(lastError)

	return &item, nil
}
