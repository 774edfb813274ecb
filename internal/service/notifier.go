package service

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Listener receives the cart as persisted by a mutation. It runs on the
// mutating goroutine and must not block.
type Listener func(ctx context.Context, session string, cart domain.Cart)

// Notifier fans cart mutations out to in-process readers so they don't have to
// wait for their next poll.
type Notifier struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns the function that removes it.
func (n *Notifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.listeners[id] = l
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *Notifier) Publish(ctx context.Context, session string, cart domain.Cart) {
	n.mu.RLock()
	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, session, cart.Clone())
	}
}
