package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emprendyup/ms-go-reconciler/app/backend"
	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/emprendyup/ms-go-reconciler/app/factory"
	"github.com/emprendyup/ms-go-reconciler/app/mapper"
	"github.com/emprendyup/ms-go-reconciler/app/provider"
	"github.com/sirupsen/logrus"
)

const (
	WarningWebhookNotConfigured = "Backend webhook URL not configured"
	WarningWebhookFailed        = "Backend notification failed"
	WarningGraphQLNotConfigured = "Backend GraphQL URL not configured"
	WarningLookupFailed         = "Backend payment lookup failed"
	WarningUpdateFailed         = "Backend payment update failed"

	mercadoPagoPaymentType = "payment"
)

type MercadoPagoResult int

const (
	MercadoPagoProcessed MercadoPagoResult = iota
	MercadoPagoUnchanged
	MercadoPagoIgnored
)

type epaycoConfirmationRequest interface {
	Validate() error
	ToNotification() *entity.PaymentNotification
	GetTransactionState() string
	RawJSON() string
}

type mercadoPagoWebhookRequest interface {
	GetType() string
	GetDataId() string
	GetSignature() string
	GetRequestId() string
	GetRawBody() string
}

type epaycoVerifier interface {
	Policy() provider.SignaturePolicy
	VerifySignature(notification *entity.PaymentNotification) provider.SignatureCheck
}

type mercadoPagoClient interface {
	Policy() provider.SignaturePolicy
	VerifySignature(signatureHeader, requestID, dataID string) provider.SignatureCheck
	GetPayment(ctx context.Context, paymentID string) (*provider.MercadoPagoPayment, error)
}

type backendWebhook interface {
	URL() string
	Forward(ctx context.Context, payload []byte) (json.RawMessage, error)
}

type paymentBackend interface {
	URL() string
	FindPaymentByOrder(ctx context.Context, orderID string) (*entity.PaymentRecord, error)
	UpdatePayment(ctx context.Context, paymentID string, update *entity.PaymentUpdate) error
}

type notificationLogRepository interface {
	Create(ctx context.Context, item *entity.NotificationLog) error
	UpdateOutcome(ctx context.Context, item *entity.NotificationLog) error
}

type deliveryQueue interface {
	Enqueue(ctx context.Context, kind, targetURL, orderID string, payload []byte, cause error) error
	EnqueuePaymentUpdate(ctx context.Context, targetURL, orderID string, expected entity.PaymentStatus, payload []byte, cause error) error
}

type paymentEventPublisher interface {
	PublishPaymentResult(ctx context.Context, result *entity.NormalizedPaymentResult) error
}

type EpaycoOutcome struct {
	Result           *entity.NormalizedPaymentResult
	TransactionState string
	BackendResponse  json.RawMessage
	Warning          string
}

type MercadoPagoOutcome struct {
	Kind      MercadoPagoResult
	Result    *entity.NormalizedPaymentResult
	PaymentID string
	Warning   string
}

type ReconcilerService struct {
	epayco      epaycoVerifier
	mercadoPago mercadoPagoClient
	webhook     backendWebhook
	payments    paymentBackend

	notificationLog notificationLogRepository
	queue           deliveryQueue
	publisher       paymentEventPublisher

	now    func() time.Time
	logger logrus.FieldLogger
}

func NewReconcilerService(
	epayco epaycoVerifier,
	mercadoPago mercadoPagoClient,
	webhook backendWebhook,
	payments paymentBackend,
) *ReconcilerService {
	return &ReconcilerService{
		epayco:      epayco,
		mercadoPago: mercadoPago,
		webhook:     webhook,
		payments:    payments,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      factory.NewModuleLogger("reconciler-service"),
	}
}

// SetNotificationLog enables journaling of every inbound notification.
func (s *ReconcilerService) SetNotificationLog(repo notificationLogRepository) {
	s.notificationLog = repo
}

// SetDeliveryQueue enables durable retry of failed backend calls.
func (s *ReconcilerService) SetDeliveryQueue(queue deliveryQueue) {
	s.queue = queue
}

func (s *ReconcilerService) SetEventPublisher(publisher paymentEventPublisher) {
	s.publisher = publisher
}

func (s *ReconcilerService) HandleEpaycoConfirmation(ctx context.Context, req epaycoConfirmationRequest) (*EpaycoOutcome, error) {
	notification := req.ToNotification()

	if err := req.Validate(); err != nil {
		s.journalRejected(ctx, notification, req.RawJSON(), err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	logger := s.logger.WithField("provider", notification.Provider).
		WithField("order_id", notification.OrderReference).
		WithField("provider_reference", notification.ProviderReference)

	check := s.epayco.VerifySignature(notification)
	if check.Err != nil {
		logger.WithError(check.Err).WithField("verified", check.Verified).Warn("ePayco signature not confirmed")
	}
	if !check.Accepted(s.epayco.Policy()) {
		s.journalRejected(ctx, notification, req.RawJSON(), check.Err)
		return nil, ErrInvalidSignature
	}

	entry := s.journalReceived(ctx, notification, req.RawJSON(), check.Valid)

	now := s.now()
	result := &entity.NormalizedPaymentResult{
		OrderID:           notification.OrderReference,
		Status:            provider.MapEpaycoStatus(notification.RawStatusCode),
		TransactionID:     notification.TransactionID,
		ProviderReference: notification.ProviderReference,
		Provider:          notification.Provider,
		SignatureValid:    check.Valid,
		Amount:            notification.Amount,
		Currency:          notification.Currency,
		ProcessedAt:       now,
	}
	outcome := &EpaycoOutcome{
		Result:           result,
		TransactionState: req.GetTransactionState(),
	}

	payload, err := json.Marshal(mapper.BackendWebhookPayload(result, notification, outcome.TransactionState))
	if err != nil {
		s.journalOutcome(ctx, entry, result, err)
		return nil, err
	}

	var forwardErr error
	if strings.TrimSpace(s.webhook.URL()) == "" {
		outcome.Warning = WarningWebhookNotConfigured
		logger.Warn("Backend webhook URL not configured, confirmation not forwarded")
	} else {
		outcome.BackendResponse, forwardErr = s.webhook.Forward(ctx, payload)
		if forwardErr != nil {
			outcome.Warning = WarningWebhookFailed
			logger.WithError(forwardErr).Error("Backend notification failed")
			s.enqueue(ctx, entity.OutboxKindBackendWebhook, s.webhook.URL(), result.OrderID, payload, forwardErr)
		}
	}

	s.publish(ctx, result)
	s.journalOutcome(ctx, entry, result, forwardErr)

	logger.WithField("status", result.Status).WithField("signature_valid", result.SignatureValid).Info("ePayco confirmation processed")

	return outcome, nil
}

func (s *ReconcilerService) HandleMercadoPagoWebhook(ctx context.Context, req mercadoPagoWebhookRequest) (*MercadoPagoOutcome, error) {
	dataID := strings.TrimSpace(req.GetDataId())
	logger := s.logger.WithField("provider", entity.ProviderMercadoPago).WithField("mp_payment_id", dataID)

	check := s.mercadoPago.VerifySignature(req.GetSignature(), req.GetRequestId(), dataID)
	if check.Err != nil {
		logger.WithError(check.Err).WithField("verified", check.Verified).Warn("MercadoPago signature not confirmed")
	}
	if !check.Accepted(s.mercadoPago.Policy()) {
		s.journalRejected(ctx, &entity.PaymentNotification{
			Provider:          entity.ProviderMercadoPago,
			ProviderReference: dataID,
		}, req.GetRawBody(), check.Err)
		return nil, ErrInvalidSignature
	}

	if req.GetType() != mercadoPagoPaymentType {
		logger.WithField("type", req.GetType()).Info("MercadoPago webhook type not processed")
		return &MercadoPagoOutcome{Kind: MercadoPagoIgnored}, nil
	}

	if dataID == "" {
		return nil, ErrMissingPaymentID
	}

	notification := &entity.PaymentNotification{
		Provider:          entity.ProviderMercadoPago,
		ProviderReference: dataID,
	}
	entry := s.journalReceived(ctx, notification, req.GetRawBody(), check.Valid)

	payment, err := s.mercadoPago.GetPayment(ctx, dataID)
	if err != nil {
		logger.WithError(err).Error("MercadoPago payment lookup failed")
		s.journalOutcome(ctx, entry, nil, err)
		return nil, fmt.Errorf("%w: %v", ErrProviderLookupFailed, err)
	}

	orderID := strings.TrimSpace(payment.ExternalReference)
	if orderID == "" {
		s.journalOutcome(ctx, entry, nil, ErrMissingExternalReference)
		return nil, ErrMissingExternalReference
	}
	logger = logger.WithField("order_id", orderID)

	transactionID := payment.IDString()
	if transactionID == "" {
		transactionID = dataID
	}

	status := provider.MapMercadoPagoStatus(payment.Status)
	result := &entity.NormalizedPaymentResult{
		OrderID:           orderID,
		Status:            status,
		TransactionID:     transactionID,
		ProviderReference: dataID,
		Provider:          entity.ProviderMercadoPago,
		SignatureValid:    check.Valid,
		Amount:            strconv.FormatFloat(payment.TransactionAmount, 'f', -1, 64),
		Currency:          payment.CurrencyID,
		ProcessedAt:       s.now(),
	}
	if entry != nil {
		entry.OrderReference = orderID
		entry.RawStatus = payment.Status
	}
	outcome := &MercadoPagoOutcome{Kind: MercadoPagoProcessed, Result: result, PaymentID: transactionID}

	if strings.TrimSpace(s.payments.URL()) == "" {
		outcome.Warning = WarningGraphQLNotConfigured
		logger.Warn("Backend GraphQL URL not configured, payment not updated")
		s.publish(ctx, result)
		s.journalOutcome(ctx, entry, result, nil)
		return outcome, nil
	}

	record, err := s.payments.FindPaymentByOrder(ctx, orderID)
	if err != nil {
		outcome.Warning = WarningLookupFailed
		logger.WithError(err).Error("Backend payment lookup failed")
		s.publish(ctx, result)
		s.journalOutcome(ctx, entry, result, err)
		return outcome, nil
	}
	if record == nil {
		logger.WithField("status", status).Info("No payment record for order, nothing to update")
		s.publish(ctx, result)
		s.journalOutcome(ctx, entry, result, nil)
		return outcome, nil
	}
	if strings.EqualFold(string(record.Status), string(status)) {
		logger.WithField("status", status).Info("Payment status unchanged")
		outcome.Kind = MercadoPagoUnchanged
		s.journalOutcome(ctx, entry, result, nil)
		return outcome, nil
	}

	update := buildPaymentUpdate(status, transactionID, payment.StatusDetail, result.ProcessedAt)
	if err := s.payments.UpdatePayment(ctx, record.ID, update); err != nil {
		outcome.Warning = WarningUpdateFailed
		logger.WithError(err).WithField("payment_id", record.ID).Error("Backend payment update failed")
		if body, encodeErr := backend.BuildUpdatePaymentRequest(record.ID, update); encodeErr == nil {
			s.enqueuePaymentUpdate(ctx, orderID, record.Status, body, err)
		}
		s.publish(ctx, result)
		s.journalOutcome(ctx, entry, result, err)
		return outcome, nil
	}

	logger.WithField("old_status", record.Status).WithField("status", status).Info("Payment status updated")
	s.publish(ctx, result)
	s.journalOutcome(ctx, entry, result, nil)

	return outcome, nil
}

func buildPaymentUpdate(status entity.PaymentStatus, transactionID, statusDetail string, now time.Time) *entity.PaymentUpdate {
	update := &entity.PaymentUpdate{
		Status:        status,
		TransactionID: transactionID,
	}

	switch status {
	case entity.PaymentStatusCompleted:
		completedAt := now.UTC()
		update.CompletedAt = &completedAt
	case entity.PaymentStatusFailed, entity.PaymentStatusRejected:
		detail := strings.TrimSpace(statusDetail)
		if detail == "" {
			detail = "unknown"
		}
		errorCode := "MP_" + strings.ToUpper(detail)
		errorMessage := "Pago rechazado: " + detail
		update.ErrorCode = &errorCode
		update.ErrorMessage = &errorMessage
	}

	return update
}

func (s *ReconcilerService) enqueue(ctx context.Context, kind, targetURL, orderID string, payload []byte, cause error) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, kind, targetURL, orderID, payload, cause); err != nil {
		s.logger.WithError(err).WithField("kind", kind).WithField("order_id", orderID).Error("Failed to enqueue backend delivery")
	}
}

func (s *ReconcilerService) enqueuePaymentUpdate(ctx context.Context, orderID string, expected entity.PaymentStatus, payload []byte, cause error) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueuePaymentUpdate(ctx, s.payments.URL(), orderID, expected, payload, cause); err != nil {
		s.logger.WithError(err).WithField("kind", entity.OutboxKindGraphQL).WithField("order_id", orderID).Error("Failed to enqueue backend delivery")
	}
}

func (s *ReconcilerService) publish(ctx context.Context, result *entity.NormalizedPaymentResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPaymentResult(ctx, result); err != nil {
		s.logger.WithError(err).WithField("order_id", result.OrderID).Warn("Failed to publish payment event")
	}
}

func (s *ReconcilerService) journalReceived(ctx context.Context, notification *entity.PaymentNotification, payloadJSON string, signatureValid bool) *entity.NotificationLog {
	if s.notificationLog == nil {
		return nil
	}

	now := s.now()
	entry := &entity.NotificationLog{
		Provider:          string(notification.Provider),
		ProviderReference: notification.ProviderReference,
		OrderReference:    notification.OrderReference,
		RawStatus:         notification.RawStatusCode,
		SignatureValid:    signatureValid,
		PayloadJSON:       payloadJSON,
		Status:            entity.NotificationStatusReceived,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.notificationLog.Create(ctx, entry); err != nil {
		s.logger.WithError(err).Warn("Failed to journal notification")
		return nil
	}

	return entry
}

func (s *ReconcilerService) journalOutcome(ctx context.Context, entry *entity.NotificationLog, result *entity.NormalizedPaymentResult, handleErr error) {
	if s.notificationLog == nil || entry == nil {
		return
	}

	entry.Status = entity.NotificationStatusHandled
	entry.Error = nil
	if result != nil {
		mapped := string(result.Status)
		entry.MappedStatus = &mapped
		entry.OrderReference = result.OrderID
	}
	if handleErr != nil {
		trimmed := truncate(handleErr.Error(), 1024)
		entry.Status = entity.NotificationStatusHandleFailed
		entry.Error = &trimmed
	}
	entry.UpdatedAt = s.now()

	if err := s.notificationLog.UpdateOutcome(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("notification_id", entry.ID).Warn("Failed to update notification journal")
	}
}

func (s *ReconcilerService) journalRejected(ctx context.Context, notification *entity.PaymentNotification, payloadJSON string, reason error) {
	if s.notificationLog == nil {
		return
	}

	message := "notification rejected"
	if reason != nil {
		message = reason.Error()
	}
	trimmed := truncate(message, 1024)
	now := s.now()
	_ = s.notificationLog.Create(ctx, &entity.NotificationLog{
		Provider:          string(notification.Provider),
		ProviderReference: notification.ProviderReference,
		OrderReference:    notification.OrderReference,
		RawStatus:         notification.RawStatusCode,
		PayloadJSON:       payloadJSON,
		Status:            entity.NotificationStatusRejected,
		Error:             &trimmed,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	for max > 0 && !utf8.RuneStart(value[max]) {
		max--
	}
	return value[:max]
}
