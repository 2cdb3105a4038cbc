package mapper

import (
	"github.com/emprendyup/ms-go-reconciler/app/entity"
	"github.com/emprendyup/ms-go-reconciler/app/types"
	"github.com/emprendyup/ms-go-reconciler/app/variant"
)

func ResolutionToResponse(resolution entity.Resolution, availability variant.Availability) *types.ResolveVariantResponse {
	return &types.ResolveVariantResponse{
		Price:        resolution.Price,
		Stock:        resolution.Stock,
		Matched:      resolution.Matched,
		CanAddToCart: availability.CanAddToCart,
		Reason:       availability.Reason,
	}
}
