package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/overlay"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type ProductSource interface {
	FetchCatalog(ctx context.Context) (*catalog.Catalog, error)
	FetchProduct(ctx context.Context, id string) (*domain.Product, error)
}

type CartHandler struct {
	carts         *service.Factory
	products      ProductSource
	orders        overlay.OrderSubmitter
	timeout       time.Duration
	badgeInterval time.Duration
	log           logger.Logger
}

func NewCartHandler(carts *service.Factory, products ProductSource, orders overlay.OrderSubmitter, timeout, badgeInterval time.Duration, log logger.Logger) *CartHandler {
	return &CartHandler{
		carts:         carts,
		products:      products,
		orders:        orders,
		timeout:       timeout,
		badgeInterval: badgeInterval,
		log:           log,
	}
}

func (h *CartHandler) cart(r *http.Request) *service.CartService {
	return h.carts.ForSession(getSessionID(r.Context()))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, convertCart(h.cart(r).Read(r.Context())))
}

func (h *CartHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, convertBadge(h.cart(r).Read(r.Context()).ItemsCount()))
}

// StreamBadge pushes the badge as server-sent events: once on connect, then on
// every change seen by polling or by a mutation in this process.
func (h *CartHandler) StreamBadge(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}
	session := getSessionID(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	counts := make(chan int, 1)
	observer := badge.NewObserver(h.cart(r), h.badgeInterval, func(count int) {
		select {
		case <-counts:
		default:
		}
		counts <- count
	})

	if n := h.carts.Notifier(); n != nil {
		unsubscribe := n.Subscribe(func(_ context.Context, s string, _ domain.Cart) {
			if s == session {
				observer.Refresh()
			}
		})
		defer unsubscribe()
	}

	observer.Start(r.Context())
	defer observer.Stop()

	writeEvent := func(count int) bool {
		data, _ := json.Marshal(convertBadge(count))
		if _, err := fmt.Fprintf(w, "event: badge\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(observer.Count()) {
		return
	}
	select {
	case <-counts:
	default:
	}

	for {
		select {
		case count := <-counts:
			if !writeEvent(count) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, ok := h.fetchProduct(ctx, w, req.ProductID)
	if !ok {
		return
	}
	if !product.InStock {
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
		return
	}
	selected := domain.SelectedAttributes(req.SelectedAttributes)
	if !product.IsSelectionComplete(selected) {
		respondError(w, http.StatusBadRequest, "select_options", "select a value for every attribute")
		return
	}

	cart, err := h.cart(r).Add(ctx, *product, selected)
	if err != nil {
		handleCartError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertCart(cart))
}

func (h *CartHandler) QuickAdd(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, ok := h.fetchProduct(ctx, w, chi.URLParam(r, "product_id"))
	if !ok {
		return
	}
	if !product.InStock {
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
		return
	}

	cart, err := h.cart(r).QuickAdd(ctx, *product)
	if err != nil {
		handleCartError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertCart(cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		respondError(w, http.StatusBadRequest, "invalid_key", "line key is malformed")
		return
	}
	delta, ok := decodeDelta(w, r)
	if !ok {
		return
	}

	cart, err := h.cart(r).ChangeQuantity(r.Context(), key, delta)
	if err != nil {
		handleCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

func (h *CartHandler) UpdateQuantityAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}
	delta, ok := decodeDelta(w, r)
	if !ok {
		return
	}

	cart, err := h.cart(r).ChangeQuantityAt(r.Context(), index, delta)
	if err != nil {
		handleCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart(r).Clear(r.Context())
	respondJSON(w, http.StatusOK, convertCart(domain.Cart{}))
}

// PlaceOrder submits what the visitor currently has in the cart. Failure is the
// one error the visitor is meant to see; the cart stays intact for a retry.
func (h *CartHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := overlay.NewSession(h.cart(r), h.orders, h.log)
	session.SetVisible(ctx, true)

	order, err := session.PlaceOrder(ctx)
	if err != nil {
		respondError(w, http.StatusBadGateway, "order_failed", orderFailureMessage(err))
		return
	}
	if order == nil {
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *CartHandler) fetchProduct(ctx context.Context, w http.ResponseWriter, id string) (*domain.Product, bool) {
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return nil, false
	}
	product, err := h.products.FetchProduct(ctx, id)
	if err != nil {
		handleCatalogError(w, err)
		return nil, false
	}
	return product, true
}

func orderFailureMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), overlay.ErrOrderFailed.Error()+": ")
	return "Failed to place order: " + msg
}

func decodeDelta(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return 0, false
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must not be zero")
		return 0, false
	}
	return req.Delta, true
}

func handleCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLineNotFound), errors.Is(err, service.ErrIndexOutOfRange):
		respondError(w, http.StatusNotFound, "line_not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidProduct):
		respondError(w, http.StatusUnprocessableEntity, "invalid_product", err.Error())
	case errors.Is(err, domain.ErrInvalidSelection):
		respondError(w, http.StatusBadRequest, "invalid_selection", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func handleCatalogError(w http.ResponseWriter, err error) {
	var gqlErr *catalog.GraphQLError
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, catalog.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "catalog request timed out")
	case errors.As(err, &gqlErr):
		respondError(w, http.StatusBadGateway, "catalog_error", gqlErr.Message)
	default:
		respondError(w, http.StatusBadGateway, "catalog_error", "catalog request failed")
	}
}
