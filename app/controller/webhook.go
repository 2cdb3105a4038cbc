package controller

import (
	"errors"
	"net/http"

	"github.com/emprendyup/ms-go-reconciler/app/factory"
	"github.com/emprendyup/ms-go-reconciler/app/mapper"
	"github.com/emprendyup/ms-go-reconciler/app/service"
	"github.com/emprendyup/ms-go-reconciler/app/types"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	epaycoInvalidSignatureMessage = "Firma inválida"
	epaycoInternalErrorMessage    = "Error interno del servidor"
	epaycoAckMessage              = "Endpoint de confirmación ePayco activo"

	mercadoPagoProcessedMessage  = "Webhook processed successfully"
	mercadoPagoUnchangedMessage  = "Status unchanged"
	mercadoPagoIgnoredMessage    = "Webhook type not processed"
	mercadoPagoAckMessage        = "MercadoPago webhook endpoint is active"
	mercadoPagoInvalidBody       = "Invalid JSON body"
	mercadoPagoInvalidSignature  = "Invalid signature"
	mercadoPagoMissingPaymentID  = "Missing payment ID"
	mercadoPagoMissingReference  = "Missing external reference"
	mercadoPagoInternalErrorText = "Internal server error"
	mercadoPagoLookupFailedText  = "Payment lookup failed"
	mercadoPagoFailedText        = "Webhook could not be processed"
)

type WebhookController struct {
	reconciler *service.ReconcilerService
	logger     logrus.FieldLogger
}

func NewWebhookController(reconciler *service.ReconcilerService) *WebhookController {
	return &WebhookController{
		reconciler: reconciler,
		logger:     factory.NewModuleLogger("webhook-controller"),
	}
}

func (c *WebhookController) EpaycoConfirmation(ctx echo.Context) error {
	req, err := types.NewEpaycoConfirmationRequestFromContext(ctx)
	if err != nil {
		return c.writeEpaycoError(ctx, http.StatusBadRequest, types.MissingEpaycoFieldsMessage)
	}

	outcome, err := c.reconciler.HandleEpaycoConfirmation(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeEpaycoError(ctx, http.StatusBadRequest, types.MissingEpaycoFieldsMessage)
		case errors.Is(err, service.ErrInvalidSignature):
			return c.writeEpaycoError(ctx, http.StatusUnauthorized, epaycoInvalidSignatureMessage)
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("ePayco confirmation failed")
			return c.writeEpaycoError(ctx, http.StatusInternalServerError, epaycoInternalErrorMessage)
		}
	}

	resp := mapper.EpaycoConfirmationResponse(outcome.Result, outcome.TransactionState)
	resp.BackendResponse = outcome.BackendResponse
	resp.Warning = outcome.Warning

	return ctx.JSON(http.StatusOK, resp)
}

func (c *WebhookController) EpaycoAck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.EpaycoAckResponse{Status: "success", Message: epaycoAckMessage})
}

func (c *WebhookController) MercadoPagoWebhook(ctx echo.Context) error {
	req, err := types.NewMercadoPagoWebhookRequestFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.MercadoPagoErrorResponse{Error: mercadoPagoInvalidBody})
	}

	outcome, err := c.reconciler.HandleMercadoPagoWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			return ctx.JSON(http.StatusUnauthorized, &types.MercadoPagoErrorResponse{Error: mercadoPagoInvalidSignature})
		case errors.Is(err, service.ErrMissingPaymentID):
			return ctx.JSON(http.StatusBadRequest, &types.MercadoPagoErrorResponse{Error: mercadoPagoMissingPaymentID})
		case errors.Is(err, service.ErrMissingExternalReference):
			return ctx.JSON(http.StatusBadRequest, &types.MercadoPagoErrorResponse{Error: mercadoPagoMissingReference})
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("MercadoPago webhook failed")
			message := mercadoPagoFailedText
			if errors.Is(err, service.ErrProviderLookupFailed) {
				message = mercadoPagoLookupFailedText
			}
			return ctx.JSON(http.StatusInternalServerError, &types.MercadoPagoErrorResponse{
				Error:   mercadoPagoInternalErrorText,
				Message: message,
			})
		}
	}

	switch outcome.Kind {
	case service.MercadoPagoIgnored:
		return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: mercadoPagoIgnoredMessage})
	case service.MercadoPagoUnchanged:
		return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: mercadoPagoUnchangedMessage})
	}

	resp := mapper.MercadoPagoWebhookResponse(outcome.Result, mercadoPagoProcessedMessage)
	resp.Warning = outcome.Warning

	return ctx.JSON(http.StatusOK, resp)
}

func (c *WebhookController) MercadoPagoAck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.MercadoPagoAckResponse{Status: "ok", Message: mercadoPagoAckMessage})
}

func (c *WebhookController) writeEpaycoError(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, &types.EpaycoErrorResponse{Success: false, Error: message})
}
