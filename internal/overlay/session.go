// Package overlay holds the cart panel's view of the cart. It snapshots the
// cart when the panel opens and only refreshes that snapshot from the results
// of its own mutations; changes made elsewhere show up on the next open.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/sirupsen/logrus"
)

var ErrOrderFailed = errors.New("failed to place order")

type Cart interface {
	Read(ctx context.Context) domain.Cart
	ChangeQuantity(ctx context.Context, identityKey string, delta int) (domain.Cart, error)
	ChangeQuantityAt(ctx context.Context, index, delta int) (domain.Cart, error)
	Clear(ctx context.Context)
}

type OrderSubmitter interface {
	CreateOrder(ctx context.Context, cart domain.Cart) (*catalog.Order, error)
}

type Session struct {
	cart   Cart
	orders OrderSubmitter
	log    logger.Logger

	mu       sync.Mutex
	visible  bool
	snapshot domain.Cart
}

func NewSession(cart Cart, orders OrderSubmitter, log logger.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		cart:     cart,
		orders:   orders,
		log:      log,
		snapshot: domain.Cart{},
	}
}

// SetVisible re-reads the cart only on the hidden to visible transition.
func (s *Session) SetVisible(ctx context.Context, visible bool) {
	s.mu.Lock()
	opening := visible && !s.visible
	s.visible = visible
	s.mu.Unlock()

	if !opening {
		return
	}
	cart := s.cart.Read(ctx)

	s.mu.Lock()
	s.snapshot = cart
	s.mu.Unlock()
}

func (s *Session) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Session) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

func (s *Session) ChangeQuantity(ctx context.Context, identityKey string, delta int) error {
	cart, err := s.cart.ChangeQuantity(ctx, identityKey, delta)
	if err != nil {
		return err
	}
	s.setSnapshot(cart)
	return nil
}

// ChangeQuantityAt addresses the line by its position in the snapshot.
func (s *Session) ChangeQuantityAt(ctx context.Context, index, delta int) error {
	cart, err := s.cart.ChangeQuantityAt(ctx, index, delta)
	if err != nil {
		return err
	}
	s.setSnapshot(cart)
	return nil
}

// PlaceOrder submits the snapshot. On success the cart is cleared; on failure
// both the snapshot and the stored cart are left as they were so the visitor
// can retry. An empty snapshot is a no-op and returns a nil order.
func (s *Session) PlaceOrder(ctx context.Context) (*catalog.Order, error) {
	items := s.Snapshot()
	if len(items) == 0 {
		return nil, nil
	}

	order, err := s.orders.CreateOrder(ctx, items)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("Error placing order")
		return nil, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}

	s.cart.Clear(ctx)
	s.setSnapshot(domain.Cart{})
	return order, nil
}

func (s *Session) setSnapshot(cart domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = cart.Clone()
}

func (s *Session) TotalPrice() domain.Money {
	return s.Snapshot().TotalPrice()
}

func (s *Session) ItemsCount() int {
	return s.Snapshot().ItemsCount()
}

// ItemsLabel is "1 Item" or "N Items".
func (s *Session) ItemsLabel() string {
	return domain.ItemsLabel(s.ItemsCount())
}
