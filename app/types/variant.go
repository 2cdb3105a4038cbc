package types

import (
	"errors"
	"strings"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/labstack/echo/v4"
)

type ResolveVariantRequest struct {
	Product      entity.Product              `json:"product"`
	Combinations []entity.VariantCombination `json:"combinations"`
	Selection    entity.Selection            `json:"selection"`
}

func NewResolveVariantRequestFromContext(ctx echo.Context) (*ResolveVariantRequest, error) {
	var body ResolveVariantRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Selection = trimSelection(body.Selection)
	return &body, nil
}

func (r *ResolveVariantRequest) Validate() error {
	if r.Product.BasePrice < 0 {
		return errors.New("product.basePrice must be >= 0")
	}
	if r.Product.BaseStock < 0 {
		return errors.New("product.baseStock must be >= 0")
	}
	for _, combination := range r.Combinations {
		if combination.Price < 0 || combination.Stock < 0 {
			return errors.New("combination price and stock must be >= 0")
		}
	}
	return nil
}

type ResolveVariantResponse struct {
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	Matched      bool    `json:"matched"`
	CanAddToCart bool    `json:"canAddToCart"`
	Reason       string  `json:"reason,omitempty"`
}

type ValidateVariantsRequest struct {
	Variants     []entity.VariantAxis        `json:"variants"`
	Combinations []entity.VariantCombination `json:"combinations"`
}

func NewValidateVariantsRequestFromContext(ctx echo.Context) (*ValidateVariantsRequest, error) {
	var body ValidateVariantsRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *ValidateVariantsRequest) Validate() error {
	for _, axis := range r.Variants {
		if strings.TrimSpace(axis.Type) == "" || strings.TrimSpace(axis.ID) == "" {
			return errors.New("variants require type and id")
		}
	}
	return nil
}

type ValidateVariantsResponse struct {
	Valid bool `json:"valid"`
}

func trimSelection(selection entity.Selection) entity.Selection {
	axes := make(map[string]string, len(selection.Axes))
	for axisType, id := range selection.Axes {
		axisType = strings.TrimSpace(axisType)
		id = strings.TrimSpace(id)
		if axisType == "" || id == "" {
			continue
		}
		axes[axisType] = id
	}
	return entity.Selection{
		Axes:  axes,
		Color: strings.TrimSpace(selection.Color),
		Size:  strings.TrimSpace(selection.Size),
	}
}
