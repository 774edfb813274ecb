package service

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/pkg/logger"
)

// Factory builds a CartService bound to one visitor session. Construct it once
// per process and hand it to the transports.
type Factory struct {
	stores   *cartstore.Stores
	notifier *Notifier
	log      logger.Logger
}

func NewFactory(stores *cartstore.Stores, notifier *Notifier, log logger.Logger) *Factory {
	return &Factory{stores: stores, notifier: notifier, log: log}
}

func (f *Factory) ForSession(sessionID string) *CartService {
	return NewCartService(f.stores.ForSession(sessionID), f.notifier, f.log)
}

func (f *Factory) Notifier() *Notifier {
	return f.notifier
}

// ClearSession empties one session's cart, for consumers outside a request.
func (f *Factory) ClearSession(ctx context.Context, sessionID string) {
	f.ForSession(sessionID).Clear(ctx)
}
