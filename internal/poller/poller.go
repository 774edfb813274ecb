// Package poller clears visitor carts when the checkout pipeline reports a
// completed checkout on the outbox topic.
package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "storefront-cart-consumer"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties the cart of one session.
type CartClearer interface {
	ClearSession(ctx context.Context, sessionID string)
}

type Poller struct {
	reader MessageReader
	carts  CartClearer
	log    logger.Logger
}

type checkoutCompleted struct {
	CheckoutID string `json:"checkout_id"`
	SessionID  string `json:"session_id"`
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(reader MessageReader, carts CartClearer, log logger.Logger) *Poller {
	return &Poller{reader: reader, carts: carts, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndEmptyCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.WithError(err).Warn("error closing reader")
	}
}

func (p *Poller) getMessageAndEmptyCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.WithError(err).Warn("error reading message")
		}
		return
	}

	var payload checkoutCompleted
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		p.log.WithError(err).Warn("error parsing message")
		return
	}
	if payload.SessionID == "" {
		p.log.WithField("checkout_id", payload.CheckoutID).Warn("missing or invalid session_id")
		return
	}

	p.carts.ClearSession(ctx, payload.SessionID)
	p.log.WithFields(logrus.Fields{
		"checkout_id": payload.CheckoutID,
		"session":     payload.SessionID,
	}).Info("cart cleared after checkout")
}
