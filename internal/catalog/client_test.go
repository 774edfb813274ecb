package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productJSON = `{
	"id": "jacket-canada-goosee",
	"name": "Jacket",
	"brand": "Canada Goose",
	"inStock": true,
	"description": "<p>Warm</p>",
	"gallery": ["a.jpg", "b.jpg"],
	"category": {"name": "clothes"},
	"attributes": [
		{"name": "Size", "items": [{"value": "S", "displayValue": "Small"}, {"value": "M", "displayValue": "Medium"}]}
	],
	"price": {"amount": 518.47, "currency": {"label": "USD", "symbol": "$"}}
}`

type capturedRequest struct {
	Query     string          `json:"query"`
	Variables json.RawMessage `json:"variables"`
	Auth      string          `json:"-"`
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, captured)
		captured.Auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	return NewClient(url, 2*time.Second, opts...)
}

func TestFetchCatalog(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"data": {
		"categories": [{"name": "all"}, {"name": "clothes"}, {"name": "tech"}],
		"products": [`+productJSON+`, {"id": "ps-5", "name": "PS5", "inStock": false, "gallery": ["ps.jpg"], "category": {"name": "tech"}, "attributes": [], "price": {"amount": 844.02, "currency": {"symbol": "$"}}}]
	}}`)
	client := newTestClient(srv.URL)

	cat, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Contains(t, captured.Query, "categories")
	assert.Empty(t, captured.Auth)

	require.Len(t, cat.Products, 2)
	assert.Len(t, cat.Categories, 3)
	assert.Equal(t, "$", cat.Products[0].Price.CurrencySymbol)
	assert.True(t, decimal.RequireFromString("518.47").Equal(cat.Products[0].Price.Amount))
	assert.False(t, cat.Products[1].InStock)

	assert.Len(t, cat.ProductsIn("all"), 2)
	tech := cat.ProductsIn("tech")
	require.Len(t, tech, 1)
	assert.Equal(t, "ps-5", tech[0].ID)
}

func TestFetchProduct(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"data": {"product": `+productJSON+`}}`)
	client := newTestClient(srv.URL)

	p, err := client.FetchProduct(context.Background(), "jacket-canada-goosee")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "jacket-canada-goosee"}`, string(captured.Variables))
	assert.Equal(t, "Canada Goose", p.Brand)
	require.Len(t, p.Attributes, 1)
	assert.Equal(t, "Small", p.Attributes[0].Items[0].DisplayValue)
}

func TestFetchProduct_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"data": {"product": null}}`)
	client := newTestClient(srv.URL)

	_, err := client.FetchProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreateOrder_SendsCredentialAndLines(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"data": {"createOrder": {
		"id": "17", "total": 1036.94, "createdAt": "2024-05-01 12:00:00",
		"orderedProducts": [{"product": {"name": "Jacket"}, "quantity": 2, "unitPrice": 518.47, "total": 1036.94,
			"selectedAttributes": [{"name": "Size", "value": "S"}]}]
	}}}`)
	client := newTestClient(srv.URL)

	cart := domain.Cart{{
		ProductID:          "jacket-canada-goosee",
		Quantity:           2,
		SelectedAttributes: domain.SelectedAttributes{"Size": "S", "Color": "Black"},
	}}
	ctx := WithCredential(context.Background(), "secret-token")

	order, err := client.CreateOrder(ctx, cart)
	require.NoError(t, err)
	assert.Equal(t, "17", order.ID)
	assert.True(t, decimal.RequireFromString("1036.94").Equal(order.Total))
	assert.Equal(t, "Bearer secret-token", captured.Auth)
	assert.Contains(t, captured.Query, "createOrder")
	assert.JSONEq(t, `{"products": [{"productId": "jacket-canada-goosee", "quantity": 2,
		"selectedAttributes": [{"name": "Color", "value": "Black"}, {"name": "Size", "value": "S"}]}]}`,
		string(captured.Variables))
}

func TestRequest_GraphQLErrorMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"errors": [{"message": "Product out of stock"}, {"message": "second"}]}`)
	client := newTestClient(srv.URL)

	_, err := client.CreateOrder(context.Background(), domain.Cart{{ProductID: "x", Quantity: 1}})
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "Product out of stock", gqlErr.Message)
}

func TestRequest_ServerError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadGateway, `upstream broke`)
	client := newTestClient(srv.URL)

	_, err := client.FetchCatalog(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestRequest_BreakerOpensOnRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := circuitbreaker.New[json.RawMessage](circuitbreaker.Settings{
		Name:                "catalog-test",
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Hour,
	})
	client := newTestClient(srv.URL, WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		_, err := client.FetchCatalog(context.Background())
		require.Error(t, err)
	}
	_, err := client.FetchCatalog(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), hits.Load())
}

func TestOrderInput_SortsAttributes(t *testing.T) {
	in := OrderInput(domain.Cart{{ProductID: "p", Quantity: 3, SelectedAttributes: domain.SelectedAttributes{"b": "2", "a": "1"}}})

	require.Len(t, in, 1)
	assert.Equal(t, []SelectedAttributeInput{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, in[0].SelectedAttributes)
	assert.True(t, strings.HasPrefix(in[0].ProductID, "p"))
}
