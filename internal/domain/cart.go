package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one row of the cart. Price, image and attributes are a snapshot
// taken when the line was first added.
type CartLine struct {
	IdentityKey        string             `json:"itemIdentifier"`
	ProductID          string             `json:"id"`
	Name               string             `json:"name"`
	Price              Money              `json:"price"`
	Quantity           int                `json:"quantity"`
	Image              string             `json:"image"`
	SelectedAttributes SelectedAttributes `json:"selectedAttributes"`
	AllAttributes      []AttributeGroup   `json:"allAttributes"`
}

// Cart keeps lines in insertion order; IdentityKey is unique across it.
type Cart []CartLine

// Envelope is what gets persisted for one visitor.
type Envelope struct {
	Cart      Cart
	ExpiresAt time.Time
}

func (e Envelope) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func NewLine(p Product, selected SelectedAttributes) CartLine {
	attrs := make([]AttributeGroup, len(p.Attributes))
	for i, g := range p.Attributes {
		attrs[i] = AttributeGroup{Name: g.Name, Items: append([]AttributeOption(nil), g.Items...)}
	}
	return CartLine{
		IdentityKey:        IdentityOf(p.ID, selected),
		ProductID:          p.ID,
		Name:               p.Name,
		Price:              p.Price,
		Quantity:           1,
		Image:              p.Gallery[0],
		SelectedAttributes: selected.Clone(),
		AllAttributes:      attrs,
	}
}

// Index returns the position of the line with the given key, or -1.
func (c Cart) Index(identityKey string) int {
	for i, line := range c {
		if line.IdentityKey == identityKey {
			return i
		}
	}
	return -1
}

func (c Cart) ItemsCount() int {
	n := 0
	for _, line := range c {
		n += line.Quantity
	}
	return n
}

// TotalPrice sums price × quantity. The currency symbol is taken from the first line.
func (c Cart) TotalPrice() Money {
	total := Money{Amount: decimal.Zero}
	for _, line := range c {
		if total.CurrencySymbol == "" {
			total.CurrencySymbol = line.Price.CurrencySymbol
		}
		total.Amount = total.Amount.Add(line.Price.Amount.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Clone copies lines and their selections so callers can mutate freely.
func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	out := make(Cart, len(c))
	for i, line := range c {
		line.SelectedAttributes = line.SelectedAttributes.Clone()
		line.AllAttributes = append([]AttributeGroup(nil), line.AllAttributes...)
		out[i] = line
	}
	return out
}

// ItemsLabel renders the count the way the cart overlay header shows it.
func ItemsLabel(count int) string {
	if count == 1 {
		return "1 Item"
	}
	return strconv.Itoa(count) + " Items"
}
