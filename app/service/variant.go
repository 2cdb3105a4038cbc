package service

import (
	"fmt"

	"github.com/emprendyup/ms-go-reconciler/app/mapper"
	"github.com/emprendyup/ms-go-reconciler/app/types"
	"github.com/emprendyup/ms-go-reconciler/app/variant"
)

type VariantService struct{}

func NewVariantService() *VariantService {
	return &VariantService{}
}

func (s *VariantService) Resolve(req *types.ResolveVariantRequest) (*types.ResolveVariantResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	resolution := variant.Resolve(req.Product, req.Combinations, req.Selection)
	availability := variant.CheckAvailability(req.Product, req.Selection, resolution)

	return mapper.ResolutionToResponse(resolution, availability), nil
}

// Validate checks a product's combinations before they are stored.
func (s *VariantService) Validate(req *types.ValidateVariantsRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := variant.ValidateCombinations(req.Variants, req.Combinations); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVariantCombination, err)
	}
	return nil
}
