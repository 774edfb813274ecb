package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowCart_NoCart(t *testing.T) {
	stores := cartstore.New(storage.NewMemoryStorage(0), cartstore.WithLogger(logger.Discard()))
	var out bytes.Buffer

	err := showCart(context.Background(), &out, stores.ForSession("abc"), time.Now())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "no cart stored for session abc")
}

func TestShowCart_ReportsExpiredCart(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stores := cartstore.New(storage.NewMemoryStorage(0),
		cartstore.WithLogger(logger.Discard()),
		cartstore.WithClock(func() time.Time { return now }))
	s := stores.ForSession("abc")

	line := domain.CartLine{
		IdentityKey: "id-airtag",
		ProductID:   "airtag",
		Name:        "AirTag",
		Price:       domain.Money{Amount: decimal.RequireFromString("10.50"), CurrencySymbol: "$"},
		Quantity:    3,
	}
	s.Save(context.Background(), domain.Cart{line})

	var out bytes.Buffer
	err := showCart(context.Background(), &out, s, now.Add(11*time.Minute))
	require.NoError(t, err)

	var report cartReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "abc", report.Session)
	assert.True(t, report.Expired)
	assert.Equal(t, 3, report.ItemsCount)
	assert.True(t, decimal.RequireFromString("31.50").Equal(report.Total.Amount))

	// Inspecting must not drop the expired cart.
	_, err = s.Peek(context.Background())
	assert.NoError(t, err)
}
