// Package badge keeps the always-visible cart counter in step with the cart by
// polling it. Staleness is bounded by the poll interval; a cart notifier can be
// attached to refresh immediately after local mutations.
package badge

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const DefaultInterval = time.Second

type CartReader interface {
	Read(ctx context.Context) domain.Cart
}

// Render is called with the new count whenever it changes.
type Render func(count int)

type Observer struct {
	reader   CartReader
	interval time.Duration
	render   Render

	mu      sync.RWMutex
	count   int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	refresh chan struct{}
}

func NewObserver(reader CartReader, interval time.Duration, render Render) *Observer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Observer{
		reader:   reader,
		interval: interval,
		render:   render,
		refresh:  make(chan struct{}, 1),
	}
}

// Start reads the cart once and then on every tick until Stop or ctx is done.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	if o.cancel != nil {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	o.update(ctx)

	o.wg.Add(1)
	go o.loop(ctx)
}

func (o *Observer) loop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.update(ctx)
		case <-o.refresh:
			o.update(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends polling and waits for the loop to exit.
func (o *Observer) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

// Refresh asks for an out-of-cycle read. It never blocks.
func (o *Observer) Refresh() {
	select {
	case o.refresh <- struct{}{}:
	default:
	}
}

func (o *Observer) update(ctx context.Context) {
	count := o.reader.Read(ctx).ItemsCount()

	o.mu.Lock()
	changed := count != o.count
	o.count = count
	o.mu.Unlock()

	if changed && o.render != nil {
		o.render(count)
	}
}

func (o *Observer) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.count
}

// Label is the badge text; visible is false when the cart is empty.
func (o *Observer) Label() (label string, visible bool) {
	return Label(o.Count())
}

func Label(count int) (string, bool) {
	if count <= 0 {
		return "", false
	}
	return strconv.Itoa(count), true
}
