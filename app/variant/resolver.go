package variant

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

const (
	legacyColorAxis = "color"
	legacySizeAxis  = "size"

	ReasonSelectionIncomplete = "selection_incomplete"
	ReasonOutOfStock          = "out_of_stock"
)

var (
	ErrDuplicateCombination = errors.New("duplicate variant combination")
	ErrEmptyCombination     = errors.New("variant combination has no variant ids")
	ErrUnknownVariant       = errors.New("variant combination references unknown variant")
	ErrAxisRepeated         = errors.New("variant combination repeats an axis")
)

type Availability struct {
	CanAddToCart bool
	Reason       string
}

// Resolve returns the effective price and stock for the current selection.
// A combination matches only when its id set equals the selected id set;
// anything else falls back to the product base values.
func Resolve(product entity.Product, combinations []entity.VariantCombination, selection entity.Selection) entity.Resolution {
	base := entity.Resolution{Price: product.BasePrice, Stock: product.BaseStock}
	if len(combinations) == 0 {
		return base
	}

	selected := SelectedIDs(selection)
	if len(selected) == 0 {
		return base
	}
	key := CombinationKey(selected)

	for _, combination := range combinations {
		ids := normalizeIDs(combination.VariantIDs)
		if len(ids) != len(selected) {
			continue
		}
		if CombinationKey(ids) != key {
			continue
		}
		return entity.Resolution{Price: combination.Price, Stock: combination.Stock, Matched: true}
	}

	return base
}

// SelectedIDs returns the sorted, de-duplicated set of ids chosen across all
// axes, legacy color/size included.
func SelectedIDs(selection entity.Selection) []string {
	ids := make([]string, 0, len(selection.Axes)+2)
	for _, id := range selection.Axes {
		ids = append(ids, id)
	}
	ids = append(ids, selection.Color, selection.Size)
	return normalizeIDs(ids)
}

func CombinationKey(ids []string) string {
	return strings.Join(normalizeIDs(ids), "|")
}

// Select returns a copy of selection with axisType set to id. An empty id
// clears the axis.
func Select(selection entity.Selection, axisType, id string) entity.Selection {
	axisType = strings.TrimSpace(axisType)
	id = strings.TrimSpace(id)

	next := entity.Selection{
		Axes:  make(map[string]string, len(selection.Axes)+1),
		Color: selection.Color,
		Size:  selection.Size,
	}
	for k, v := range selection.Axes {
		next.Axes[k] = v
	}
	if axisType == "" {
		return next
	}

	if id == "" {
		delete(next.Axes, axisType)
	} else {
		next.Axes[axisType] = id
	}

	switch strings.ToLower(axisType) {
	case legacyColorAxis:
		next.Color = ""
	case legacySizeAxis:
		next.Size = ""
	}

	return next
}

// ValidateCombinations enforces the combination invariants at ingestion time.
// With no axes declared only emptiness and duplicates are checked.
func ValidateCombinations(axes []entity.VariantAxis, combinations []entity.VariantCombination) error {
	axisByID := make(map[string]string, len(axes))
	for _, axis := range axes {
		if id := strings.TrimSpace(axis.ID); id != "" {
			axisByID[id] = strings.TrimSpace(axis.Type)
		}
	}

	seen := make(map[string]int, len(combinations))
	for i, combination := range combinations {
		ids := normalizeIDs(combination.VariantIDs)
		if len(ids) == 0 {
			return fmt.Errorf("%w: index %d", ErrEmptyCombination, i)
		}

		if len(axisByID) > 0 {
			usedAxes := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				axisType, ok := axisByID[id]
				if !ok {
					return fmt.Errorf("%w: index %d id %q", ErrUnknownVariant, i, id)
				}
				if _, dup := usedAxes[axisType]; dup {
					return fmt.Errorf("%w: index %d axis %q", ErrAxisRepeated, i, axisType)
				}
				usedAxes[axisType] = struct{}{}
			}
		}

		key := CombinationKey(ids)
		if first, ok := seen[key]; ok {
			return fmt.Errorf("%w: indexes %d and %d share %q", ErrDuplicateCombination, first, i, key)
		}
		seen[key] = i
	}

	return nil
}

// CheckAvailability gates add-to-cart: every declared axis type needs a
// selection and the effective stock must be positive.
func CheckAvailability(product entity.Product, selection entity.Selection, resolution entity.Resolution) Availability {
	selectedAxes := make(map[string]struct{}, len(selection.Axes)+2)
	for axisType, id := range selection.Axes {
		if strings.TrimSpace(id) != "" {
			selectedAxes[strings.ToLower(strings.TrimSpace(axisType))] = struct{}{}
		}
	}
	if strings.TrimSpace(selection.Color) != "" {
		selectedAxes[legacyColorAxis] = struct{}{}
	}
	if strings.TrimSpace(selection.Size) != "" {
		selectedAxes[legacySizeAxis] = struct{}{}
	}

	for _, axisType := range RequiredAxes(product) {
		if _, ok := selectedAxes[strings.ToLower(axisType)]; !ok {
			return Availability{Reason: ReasonSelectionIncomplete}
		}
	}

	if resolution.Stock <= 0 {
		return Availability{Reason: ReasonOutOfStock}
	}

	return Availability{CanAddToCart: true}
}

// RequiredAxes lists the distinct axis types a product declares, in first
// appearance order.
func RequiredAxes(product entity.Product) []string {
	seen := make(map[string]struct{}, len(product.Variants))
	axes := make([]string, 0, len(product.Variants))
	for _, axis := range product.Variants {
		axisType := strings.TrimSpace(axis.Type)
		if axisType == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(axisType)]; ok {
			continue
		}
		seen[strings.ToLower(axisType)] = struct{}{}
		axes = append(axes, axisType)
	}
	return axes
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}
