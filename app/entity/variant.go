package entity

type VariantAxis struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

type VariantCombination struct {
	VariantIDs []string `json:"variantIds"`
	Price      float64  `json:"price"`
	Stock      int      `json:"stock"`
}

type Product struct {
	ID        string        `json:"id,omitempty"`
	BasePrice float64       `json:"basePrice"`
	BaseStock int           `json:"baseStock"`
	Variants  []VariantAxis `json:"variants,omitempty"`
}

// Selection holds at most one selected variant id per axis type. Color and
// Size carry the legacy single-value selections.
type Selection struct {
	Axes  map[string]string `json:"axes,omitempty"`
	Color string            `json:"color,omitempty"`
	Size  string            `json:"size,omitempty"`
}

type Resolution struct {
	Price   float64 `json:"price"`
	Stock   int     `json:"stock"`
	Matched bool    `json:"matched"`
}
