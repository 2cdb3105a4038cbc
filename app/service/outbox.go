package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/backend"
	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/emprendyup/ms-go-reconciler/app/factory"
	"github.com/emprendyup/ms-go-reconciler/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultBatchSize = int32(100)

type outboxRepository interface {
	Create(ctx context.Context, delivery *entity.OutboxDelivery) error
	Update(ctx context.Context, delivery *entity.OutboxDelivery) error
	ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.OutboxDelivery, error)
	Stats(ctx context.Context) (*entity.OutboxStats, error)
}

type JSONPoster interface {
	PostJSON(ctx context.Context, targetURL string, body []byte) ([]byte, error)
}

type paymentStore interface {
	FindPaymentByOrder(ctx context.Context, orderID string) (*entity.PaymentRecord, error)
	UpdatePayment(ctx context.Context, paymentID string, update *entity.PaymentUpdate) error
}

// OutboxService stores backend calls that failed synchronously and replays
// them until they succeed or run out of attempts. Webhook forwards are
// replayed through posters keyed by kind. Payment updates are replayed
// against the current backend record.
type OutboxService struct {
	repo     outboxRepository
	posters  map[string]JSONPoster
	payments paymentStore
	cfg      config.OutboxConfig
	now      func() time.Time
	logger   logrus.FieldLogger
}

func NewOutboxService(repo outboxRepository, posters map[string]JSONPoster, payments paymentStore, cfg config.OutboxConfig) *OutboxService {
	return &OutboxService{
		repo:     repo,
		posters:  posters,
		payments: payments,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   factory.NewModuleLogger("outbox-service"),
	}
}

func (s *OutboxService) Enqueue(ctx context.Context, kind, targetURL, orderID string, payload []byte, cause error) error {
	return s.enqueue(ctx, kind, targetURL, orderID, "", payload, cause)
}

// EnqueuePaymentUpdate stores a failed UPDATE_PAYMENT mutation together with
// the status the backend record had when it was built.
func (s *OutboxService) EnqueuePaymentUpdate(ctx context.Context, targetURL, orderID string, expected entity.PaymentStatus, payload []byte, cause error) error {
	return s.enqueue(ctx, entity.OutboxKindGraphQL, targetURL, orderID, expected, payload, cause)
}

func (s *OutboxService) enqueue(ctx context.Context, kind, targetURL, orderID string, expected entity.PaymentStatus, payload []byte, cause error) error {
	if s.repo == nil {
		return ErrOutboxDisabled
	}

	now := s.now()
	nextAttemptAt := now.Add(s.retryInterval())
	delivery := &entity.OutboxDelivery{
		DeliveryID:    uuid.NewString(),
		Kind:          kind,
		TargetURL:     strings.TrimSpace(targetURL),
		OrderID:        orderID,
		ExpectedStatus: string(expected),
		PayloadJSON:    string(payload),
		Status:        entity.OutboxStatusPending,
		Attempts:      1,
		NextAttemptAt: &nextAttemptAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cause != nil {
		trimmed := truncate(cause.Error(), 1024)
		delivery.LastError = &trimmed
	}
	if delivery.Attempts >= s.maxAttempts() {
		delivery.Status = entity.OutboxStatusFailed
		delivery.NextAttemptAt = nil
	}

	return s.repo.Create(ctx, delivery)
}

func (s *OutboxService) RunDispatchBatch(ctx context.Context) error {
	if s.repo == nil {
		return ErrOutboxDisabled
	}

	now := s.now()
	items, err := s.repo.ListDue(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, delivery := range items {
		if delivery == nil {
			continue
		}
		if err := s.dispatch(ctx, delivery, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *OutboxService) Stats(ctx context.Context) (*entity.OutboxStats, error) {
	if s.repo == nil {
		return nil, ErrOutboxDisabled
	}
	return s.repo.Stats(ctx)
}

func (s *OutboxService) dispatch(ctx context.Context, delivery *entity.OutboxDelivery, now time.Time) error {
	if delivery.Kind == entity.OutboxKindGraphQL {
		return s.dispatchPaymentUpdate(ctx, delivery, now)
	}

	poster, ok := s.posters[delivery.Kind]
	if !ok || poster == nil {
		return s.markFailed(ctx, delivery, now, fmt.Sprintf("no poster for delivery kind %q", delivery.Kind))
	}

	if _, err := poster.PostJSON(ctx, delivery.TargetURL, []byte(delivery.PayloadJSON)); err != nil {
		return s.recordDispatchFailure(ctx, delivery, now, err)
	}

	return s.markDelivered(ctx, delivery, now, "")
}

// dispatchPaymentUpdate re-reads the backend record before replaying a stored
// mutation. A record that already carries the target status, or that moved
// away from the status seen at enqueue time, is left alone.
func (s *OutboxService) dispatchPaymentUpdate(ctx context.Context, delivery *entity.OutboxDelivery, now time.Time) error {
	if s.payments == nil {
		return s.markFailed(ctx, delivery, now, "no payment backend for graphql deliveries")
	}

	paymentID, update, err := backend.ParseUpdatePaymentRequest([]byte(delivery.PayloadJSON))
	if err != nil {
		return s.markFailed(ctx, delivery, now, err.Error())
	}

	record, err := s.payments.FindPaymentByOrder(ctx, delivery.OrderID)
	if err != nil {
		return s.recordDispatchFailure(ctx, delivery, now, err)
	}

	switch {
	case record == nil:
		return s.markDelivered(ctx, delivery, now, "skipped: payment record no longer exists")
	case record.ID != paymentID:
		return s.markDelivered(ctx, delivery, now, fmt.Sprintf("skipped: order now maps to payment %s", record.ID))
	case strings.EqualFold(string(record.Status), string(update.Status)):
		return s.markDelivered(ctx, delivery, now, "skipped: status already applied")
	case delivery.ExpectedStatus != "" && !strings.EqualFold(string(record.Status), delivery.ExpectedStatus):
		return s.markDelivered(ctx, delivery, now, fmt.Sprintf("skipped: status moved from %s to %s", delivery.ExpectedStatus, record.Status))
	}

	if err := s.payments.UpdatePayment(ctx, paymentID, update); err != nil {
		return s.recordDispatchFailure(ctx, delivery, now, err)
	}

	return s.markDelivered(ctx, delivery, now, "")
}

// markDelivered closes a delivery. A non-empty note records why it was
// closed without sending anything.
func (s *OutboxService) markDelivered(ctx context.Context, delivery *entity.OutboxDelivery, now time.Time, note string) error {
	delivery.Status = entity.OutboxStatusDelivered
	delivery.NextAttemptAt = nil
	delivery.LastError = nil
	if note != "" {
		delivery.LastError = &note
	}
	delivery.UpdatedAt = now

	if err := s.repo.Update(ctx, delivery); err != nil {
		return err
	}

	logger := s.logger.WithField("delivery_id", delivery.DeliveryID).
		WithField("kind", delivery.Kind).
		WithField("order_id", delivery.OrderID).
		WithField("attempts", delivery.Attempts)
	if note != "" {
		logger.WithField("reason", note).Info("Outbox delivery skipped")
		return nil
	}
	logger.Info("Outbox delivery dispatched")

	return nil
}

func (s *OutboxService) markFailed(ctx context.Context, delivery *entity.OutboxDelivery, now time.Time, reason string) error {
	delivery.Status = entity.OutboxStatusFailed
	delivery.NextAttemptAt = nil
	delivery.LastError = &reason
	delivery.UpdatedAt = now
	return s.repo.Update(ctx, delivery)
}

func (s *OutboxService) recordDispatchFailure(ctx context.Context, delivery *entity.OutboxDelivery, now time.Time, dispatchErr error) error {
	delivery.Attempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	delivery.LastError = &trimmed

	if delivery.Attempts >= s.maxAttempts() {
		delivery.Status = entity.OutboxStatusFailed
		delivery.NextAttemptAt = nil
	} else {
		nextAt := now.Add(s.retryInterval())
		delivery.Status = entity.OutboxStatusPending
		delivery.NextAttemptAt = &nextAt
	}
	delivery.UpdatedAt = now

	if err := s.repo.Update(ctx, delivery); err != nil {
		return err
	}

	return dispatchErr
}

func (s *OutboxService) maxAttempts() int32 {
	if s.cfg.MaxAttempts <= 0 {
		return 1
	}
	return s.cfg.MaxAttempts
}

func (s *OutboxService) retryInterval() time.Duration {
	if s.cfg.RetryInterval <= 0 {
		return 5 * time.Minute
	}
	return s.cfg.RetryInterval
}

func (s *OutboxService) batchSize() int32 {
	if s.cfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return s.cfg.BatchSize
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
