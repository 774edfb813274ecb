package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidSelection = errors.New("invalid attribute selection")
)

type Money struct {
	Amount         decimal.Decimal `json:"amount"`
	CurrencySymbol string          `json:"currencySymbol"`
}

func (m Money) String() string {
	return m.CurrencySymbol + m.Amount.StringFixed(2)
}

type AttributeOption struct {
	Value        string `json:"value"`
	DisplayValue string `json:"displayValue"`
}

type AttributeGroup struct {
	Name  string            `json:"name"`
	Items []AttributeOption `json:"items"`
}

// HasValue reports whether value is one of the group's options.
func (g AttributeGroup) HasValue(value string) bool {
	for _, item := range g.Items {
		if item.Value == value {
			return true
		}
	}
	return false
}

type Category struct {
	Name string `json:"name"`
}

// Product is the catalog projection the cart works with. It is read-only input.
type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Brand       string           `json:"brand"`
	InStock     bool             `json:"inStock"`
	Gallery     []string         `json:"gallery"`
	Price       Money            `json:"price"`
	Category    Category         `json:"category"`
	Attributes  []AttributeGroup `json:"attributes"`
	Description string           `json:"description"`
}

// SelectedAttributes maps an attribute group name to the chosen option value.
type SelectedAttributes map[string]string

// Validate checks what the cart needs from a product to snapshot it into a line.
func (p Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if len(p.Gallery) == 0 {
		return fmt.Errorf("%w: product %s has no gallery images", ErrInvalidProduct, p.ID)
	}
	if p.Price.Amount.IsNegative() {
		return fmt.Errorf("%w: product %s has negative price", ErrInvalidProduct, p.ID)
	}
	seen := make(map[string]struct{}, len(p.Attributes))
	for _, g := range p.Attributes {
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("%w: product %s has duplicate attribute %q", ErrInvalidProduct, p.ID, g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

func (p Product) attribute(name string) (AttributeGroup, bool) {
	for _, g := range p.Attributes {
		if g.Name == name {
			return g, true
		}
	}
	return AttributeGroup{}, false
}

// ValidateSelection accepts any subset of the product's attribute groups as long
// as every chosen value is one of that group's options.
func (p Product) ValidateSelection(sel SelectedAttributes) error {
	for name, value := range sel {
		g, ok := p.attribute(name)
		if !ok {
			return fmt.Errorf("%w: product %s has no attribute %q", ErrInvalidSelection, p.ID, name)
		}
		if !g.HasValue(value) {
			return fmt.Errorf("%w: %q is not an option of %q", ErrInvalidSelection, value, name)
		}
	}
	return nil
}

// IsSelectionComplete reports whether every attribute group has a value.
func (p Product) IsSelectionComplete(sel SelectedAttributes) bool {
	for _, g := range p.Attributes {
		if _, ok := sel[g.Name]; !ok {
			return false
		}
	}
	return true
}

// DefaultSelection picks the first option of every attribute group.
// Groups without options are skipped.
func (p Product) DefaultSelection() SelectedAttributes {
	sel := make(SelectedAttributes, len(p.Attributes))
	for _, g := range p.Attributes {
		if len(g.Items) == 0 {
			continue
		}
		sel[g.Name] = g.Items[0].Value
	}
	return sel
}

func (s SelectedAttributes) Clone() SelectedAttributes {
	out := make(SelectedAttributes, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
