package http

import (
	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID          string            `json:"product_id"`
	SelectedAttributes map[string]string `json:"selected_attributes"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type BadgeDTO struct {
	Count   int    `json:"count"`
	Label   string `json:"label,omitempty"`
	Visible bool   `json:"visible"`
}

type CartDTO struct {
	Lines      domain.Cart  `json:"lines"`
	ItemsCount int          `json:"items_count"`
	ItemsLabel string       `json:"items_label"`
	Total      domain.Money `json:"total"`
}

func convertCart(c domain.Cart) CartDTO {
	if c == nil {
		c = domain.Cart{}
	}
	count := c.ItemsCount()
	return CartDTO{
		Lines:      c,
		ItemsCount: count,
		ItemsLabel: domain.ItemsLabel(count),
		Total:      c.TotalPrice(),
	}
}

func convertBadge(count int) BadgeDTO {
	label, visible := badge.Label(count)
	return BadgeDTO{Count: count, Label: label, Visible: visible}
}
