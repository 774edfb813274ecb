// Package catalog talks to the storefront's GraphQL catalog service: it fetches
// products and categories and submits finished orders.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUnavailable     = errors.New("catalog service unavailable")
)

// GraphQLError is the first error the service reported for a request.
type GraphQLError struct {
	Message string
}

func (e *GraphQLError) Error() string {
	return e.Message
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker[json.RawMessage]
	log        logger.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithBreaker(b *circuitbreaker.Breaker[json.RawMessage]) Option {
	return func(cl *Client) { cl.breaker = b }
}

func WithLogger(log logger.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuitbreaker.New[json.RawMessage](circuitbreaker.Settings{
			Name: "catalog",
			// The service answered; it just rejected the request.
			Ignore: func(err error) bool {
				var gqlErr *GraphQLError
				return errors.As(err, &gqlErr)
			},
			OnStateChange: func(name, from, to string) {
				c.log.WithFields(logrus.Fields{"breaker": name, "from": from, "to": to}).Warn("circuit breaker state changed")
			},
		})
	}
	return c
}

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) FetchCatalog(ctx context.Context) (*Catalog, error) {
	data, err := c.request(ctx, getCatalogQuery, nil, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Categories []domain.Category `json:"categories"`
		Products   []productDTO      `json:"products"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode catalog failed: %w", err)
	}

	out := &Catalog{
		Categories: resp.Categories,
		Products:   make([]domain.Product, len(resp.Products)),
	}
	for i, p := range resp.Products {
		out.Products[i] = convertProduct(p)
	}
	return out, nil
}

func (c *Client) FetchProduct(ctx context.Context, id string) (*domain.Product, error) {
	data, err := c.request(ctx, getProductQuery, map[string]interface{}{"id": id}, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Product *productDTO `json:"product"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode product failed: %w", err)
	}
	if resp.Product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	p := convertProduct(*resp.Product)
	return &p, nil
}

// CreateOrder submits the cart lines with the credential found in ctx.
func (c *Client) CreateOrder(ctx context.Context, cart domain.Cart) (*Order, error) {
	vars := map[string]interface{}{"products": OrderInput(cart)}
	data, err := c.request(ctx, createOrderMutation, vars, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		CreateOrder *Order `json:"createOrder"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode order failed: %w", err)
	}
	if resp.CreateOrder == nil {
		return nil, errors.New("order service returned no order")
	}
	return resp.CreateOrder, nil
}

func (c *Client) request(ctx context.Context, query string, vars map[string]interface{}, auth bool) (json.RawMessage, error) {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encode request failed: %w", err)
	}

	data, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.do(ctx, body, auth)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return nil, gqlErr
	}
	if err != nil {
		c.log.WithContext(ctx).WithError(err).Error("GraphQL request failed")
		return nil, err
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, body []byte, auth bool) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+CredentialFrom(ctx))
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("catalog responded %d", res.StatusCode)
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("catalog responded %d with undecodable body: %w", res.StatusCode, err)
	}
	if len(gr.Errors) > 0 {
		return nil, &GraphQLError{Message: gr.Errors[0].Message}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("catalog responded %d", res.StatusCode)
	}
	return gr.Data, nil
}
