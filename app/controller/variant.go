package controller

import (
	"errors"
	"net/http"

	"github.com/emprendyup/ms-go-reconciler/app/factory"
	"github.com/emprendyup/ms-go-reconciler/app/service"
	"github.com/emprendyup/ms-go-reconciler/app/types"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type VariantController struct {
	variantService *service.VariantService
	serviceName    string
	logger         logrus.FieldLogger
}

func NewVariantController(variantService *service.VariantService, serviceName string) *VariantController {
	return &VariantController{
		variantService: variantService,
		serviceName:    serviceName,
		logger:         factory.NewModuleLogger("variant-controller"),
	}
}

func (c *VariantController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok", Service: c.serviceName})
}

func (c *VariantController) Resolve(ctx echo.Context) error {
	req, err := types.NewResolveVariantRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	resp, err := c.variantService.Resolve(req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Resolve variant failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *VariantController) Validate(ctx echo.Context) error {
	req, err := types.NewValidateVariantsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	if err := c.variantService.Validate(req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVariantCombination):
			return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Validate variants failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.ValidateVariantsResponse{Valid: true})
}

func (c *VariantController) writeError(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, &types.ErrorResponse{Error: message})
}
