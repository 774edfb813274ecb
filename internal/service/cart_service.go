package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrIndexOutOfRange = errors.New("cart line index out of range")
)

// CartStore is the persistence the service needs for one visitor.
type CartStore interface {
	Session() string
	// Load feeds mutations; LoadShared feeds display reads and may coalesce.
	Load(ctx context.Context) domain.Cart
	LoadShared(ctx context.Context) domain.Cart
	Save(ctx context.Context, cart domain.Cart) domain.Cart
	Clear(ctx context.Context)
}

// CartService implements the cart operations as read-modify-write cycles over
// the store. Nothing is kept in memory between calls and concurrent writers are
// not serialised: the last write wins.
type CartService struct {
	store    CartStore
	notifier *Notifier
	log      logger.Logger
}

func NewCartService(store CartStore, notifier *Notifier, log logger.Logger) *CartService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CartService{
		store:    store,
		notifier: notifier,
		log:      log,
	}
}

// Read is for display. Mutations never start from it.
func (s *CartService) Read(ctx context.Context) domain.Cart {
	return s.store.LoadShared(ctx)
}

// Add merges into the line with the same identity key or appends a new one.
// A merged line keeps the price, image and attributes it was first added with.
func (s *CartService) Add(ctx context.Context, product domain.Product, selected domain.SelectedAttributes) (domain.Cart, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := product.ValidateSelection(selected); err != nil {
		return nil, err
	}

	cart := s.store.Load(ctx)
	key := domain.IdentityOf(product.ID, selected)

	if i := cart.Index(key); i != -1 {
		cart[i].Quantity++
	} else {
		cart = append(cart, domain.NewLine(product, selected))
	}

	return s.persist(ctx, cart), nil
}

// QuickAdd adds the product with the first option of every attribute group.
func (s *CartService) QuickAdd(ctx context.Context, product domain.Product) (domain.Cart, error) {
	return s.Add(ctx, product, product.DefaultSelection())
}

// ChangeQuantity adjusts the line with the given identity key by delta and
// removes it once the quantity drops to zero or below.
func (s *CartService) ChangeQuantity(ctx context.Context, identityKey string, delta int) (domain.Cart, error) {
	cart := s.store.Load(ctx)
	i := cart.Index(identityKey)
	if i == -1 {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, identityKey)
	}
	return s.persist(ctx, applyDelta(cart, i, delta)), nil
}

// ChangeQuantityAt is the positional form. The index refers to the cart as it
// is stored now, so callers must have read it within the same interaction;
// prefer ChangeQuantity.
func (s *CartService) ChangeQuantityAt(ctx context.Context, index, delta int) (domain.Cart, error) {
	cart := s.store.Load(ctx)
	if index < 0 || index >= len(cart) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(cart))
	}
	return s.persist(ctx, applyDelta(cart, index, delta)), nil
}

// Clear empties the cart, used once an order went through.
func (s *CartService) Clear(ctx context.Context) {
	s.store.Clear(ctx)
	s.notify(ctx, domain.Cart{})
}

func applyDelta(cart domain.Cart, i, delta int) domain.Cart {
	cart[i].Quantity += delta
	if cart[i].Quantity <= 0 {
		return append(cart[:i], cart[i+1:]...)
	}
	return cart
}

func (s *CartService) persist(ctx context.Context, cart domain.Cart) domain.Cart {
	saved := s.store.Save(ctx, cart)
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"session": s.store.Session(),
		"lines":   len(saved),
		"items":   saved.ItemsCount(),
	}).Debug("cart saved")
	s.notify(ctx, saved)
	return saved
}

func (s *CartService) notify(ctx context.Context, cart domain.Cart) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, s.store.Session(), cart)
}
