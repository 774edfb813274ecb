// Package cartstore persists a visitor's cart as two storage keys, the
// serialized lines and an expiration timestamp, and enforces a sliding TTL
// lazily on read.
//
// Storage is treated as an untrusted cache: every failure degrades to an empty
// cart and is logged, nothing is returned to the caller.
package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 10 * time.Minute

	CartKey       = "cart"
	ExpirationKey = "cartExpiration"
)

var ErrMalformedEnvelope = errors.New("malformed cart envelope")

type Option func(*Stores)

func WithTTL(ttl time.Duration) Option {
	return func(s *Stores) { s.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Stores) { s.now = now }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Stores) { s.log = log }
}

// Stores hands out per-session stores that share one backend and coalesce
// concurrent display reads of the same session.
type Stores struct {
	storage storage.Storage
	ttl     time.Duration
	now     func() time.Time
	log     logger.Logger
	sfg     singleflight.Group
}

func New(s storage.Storage, opts ...Option) *Stores {
	st := &Stores{
		storage: s,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// ForSession returns the store for one visitor. An empty session uses the bare
// keys "cart" and "cartExpiration".
func (s *Stores) ForSession(sessionID string) *Store {
	return &Store{parent: s, session: sessionID}
}

type Store struct {
	parent  *Stores
	session string
}

func (s *Store) Session() string {
	return s.session
}

func (s *Store) cartKey() string {
	return namespaced(CartKey, s.session)
}

func (s *Store) expirationKey() string {
	return namespaced(ExpirationKey, s.session)
}

func namespaced(key, session string) string {
	if session == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", key, session)
}

func (s *Store) logEntry(ctx context.Context) *logrus.Entry {
	return s.parent.log.WithContext(ctx).WithField("session", s.session)
}

// Load reads the persisted cart for a read-modify-write, or an empty cart when
// nothing usable is stored. An expired envelope is deleted on the way. Loads
// are never shared so a mutation always starts from the last saved cart.
func (s *Store) Load(ctx context.Context) domain.Cart {
	return s.load(ctx)
}

// LoadShared is Load for display-only readers. Concurrent calls for the same
// session share one storage read and each gets its own copy. The shared read
// is detached from the caller that started it, and a caller that gives up
// gets an empty cart without affecting the others.
func (s *Store) LoadShared(ctx context.Context) domain.Cart {
	ch := s.parent.sfg.DoChan(s.cartKey(), func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(domain.Cart).Clone()
	case <-ctx.Done():
		return domain.Cart{}
	}
}

func (s *Store) load(ctx context.Context) domain.Cart {
	env, err := s.Peek(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logEntry(ctx).WithError(err).Warn("error getting cart")
		}
		return domain.Cart{}
	}

	if env.Expired(s.parent.now()) {
		s.Clear(ctx)
		return domain.Cart{}
	}

	cart := make(domain.Cart, 0, len(env.Cart))
	for _, line := range env.Cart {
		if line.Quantity > 0 {
			cart = append(cart, line)
		}
	}
	return cart
}

// Peek reads the raw envelope without applying the TTL. storage.ErrNotFound
// means one of the two keys is missing.
func (s *Store) Peek(ctx context.Context) (domain.Envelope, error) {
	rawCart, err := s.parent.storage.Get(ctx, s.cartKey())
	if err != nil {
		return domain.Envelope{}, err
	}
	rawExp, err := s.parent.storage.Get(ctx, s.expirationKey())
	if err != nil {
		return domain.Envelope{}, err
	}

	ms, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: expiration %q: %v", ErrMalformedEnvelope, rawExp, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(rawCart), &cart); err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if cart == nil {
		cart = domain.Cart{}
	}

	return domain.Envelope{Cart: cart, ExpiresAt: time.UnixMilli(ms)}, nil
}

// Save writes the cart and pushes the expiration to now+TTL. On failure it
// logs and returns an empty cart.
func (s *Store) Save(ctx context.Context, cart domain.Cart) domain.Cart {
	if cart == nil {
		cart = domain.Cart{}
	}

	data, err := json.Marshal(cart)
	if err != nil {
		s.logEntry(ctx).WithError(err).Warn("error setting cart")
		return domain.Cart{}
	}

	expiresAt := s.parent.now().Add(s.parent.ttl)
	if err := s.parent.storage.Set(ctx, s.cartKey(), string(data)); err != nil {
		s.logEntry(ctx).WithError(err).Warn("error setting cart")
		return domain.Cart{}
	}
	if err := s.parent.storage.Set(ctx, s.expirationKey(), strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		s.logEntry(ctx).WithError(err).Warn("error setting cart expiration")
		// The new lines must not outlive the old expiration.
		s.Clear(ctx)
		return domain.Cart{}
	}
	s.forget()

	return cart
}

// Clear removes both keys. Safe to call when nothing is stored.
func (s *Store) Clear(ctx context.Context) {
	if err := s.parent.storage.Delete(ctx, s.cartKey(), s.expirationKey()); err != nil {
		s.logEntry(ctx).WithError(err).Warn("error clearing cart")
	}
	s.forget()
}

// forget detaches shared reads already in flight, so readers arriving after a
// write see that write.
func (s *Store) forget() {
	s.parent.sfg.Forget(s.cartKey())
}
