package catalog

import (
	"sort"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const AllCategories = "all"

type Catalog struct {
	Categories []domain.Category
	Products   []domain.Product
}

// ProductsIn filters by category name; "all" returns every product.
func (c Catalog) ProductsIn(category string) []domain.Product {
	if category == "" || category == AllCategories {
		return c.Products
	}
	out := make([]domain.Product, 0, len(c.Products))
	for _, p := range c.Products {
		if p.Category.Name == category {
			out = append(out, p)
		}
	}
	return out
}

type Order struct {
	ID              string           `json:"id"`
	OrderedProducts []OrderedProduct `json:"orderedProducts"`
	Total           decimal.Decimal  `json:"total"`
	CreatedAt       string           `json:"createdAt"`
}

type OrderedProduct struct {
	Product struct {
		Name string `json:"name"`
	} `json:"product"`
	Quantity           int                      `json:"quantity"`
	UnitPrice          decimal.Decimal          `json:"unitPrice"`
	Total              decimal.Decimal          `json:"total"`
	SelectedAttributes []SelectedAttributeInput `json:"selectedAttributes"`
}

type OrderProductInput struct {
	ProductID          string                   `json:"productId"`
	Quantity           int                      `json:"quantity"`
	SelectedAttributes []SelectedAttributeInput `json:"selectedAttributes"`
}

type SelectedAttributeInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OrderInput maps cart lines to the order mutation's products argument.
func OrderInput(cart domain.Cart) []OrderProductInput {
	out := make([]OrderProductInput, len(cart))
	for i, line := range cart {
		attrs := make([]SelectedAttributeInput, 0, len(line.SelectedAttributes))
		for name, value := range line.SelectedAttributes {
			attrs = append(attrs, SelectedAttributeInput{Name: name, Value: value})
		}
		sort.Slice(attrs, func(a, b int) bool { return attrs[a].Name < attrs[b].Name })
		out[i] = OrderProductInput{
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			SelectedAttributes: attrs,
		}
	}
	return out
}

type productDTO struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Brand       string                  `json:"brand"`
	InStock     bool                    `json:"inStock"`
	Description string                  `json:"description"`
	Gallery     []string                `json:"gallery"`
	Category    domain.Category         `json:"category"`
	Attributes  []domain.AttributeGroup `json:"attributes"`
	Price       struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency struct {
			Label  string `json:"label"`
			Symbol string `json:"symbol"`
		} `json:"currency"`
	} `json:"price"`
}

func convertProduct(p productDTO) domain.Product {
	return domain.Product{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		InStock:     p.InStock,
		Gallery:     p.Gallery,
		Price:       domain.Money{Amount: p.Price.Amount, CurrencySymbol: p.Price.Currency.Symbol},
		Category:    p.Category,
		Attributes:  p.Attributes,
		Description: p.Description,
	}
}
