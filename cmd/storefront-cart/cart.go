package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/spf13/cobra"
)

func newCartCommand() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect or clear a persisted cart",
	}
	cmd.PersistentFlags().StringVar(&session, "session", "", "session id from the cart_session cookie")
	_ = cmd.MarkPersistentFlagRequired("session")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored cart envelope",
		RunE: func(c *cobra.Command, _ []string) error {
			return withStore(c.Context(), session, func(ctx context.Context, s *cartstore.Store) error {
				return showCart(ctx, c.OutOrStdout(), s, time.Now())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the stored cart",
		RunE: func(c *cobra.Command, _ []string) error {
			return withStore(c.Context(), session, func(ctx context.Context, s *cartstore.Store) error {
				s.Clear(ctx)
				fmt.Fprintf(c.OutOrStdout(), "cart for session %s cleared\n", s.Session())
				return nil
			})
		},
	})
	return cmd
}

func withStore(ctx context.Context, session string, fn func(context.Context, *cartstore.Store) error) error {
	ctx = ctxOrBackground(ctx)
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel})

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()

	stores := cartstore.New(store, cartstore.WithTTL(cfg.CartTTL), cartstore.WithLogger(log))
	return fn(ctx, stores.ForSession(session))
}

type cartReport struct {
	Session    string       `json:"session"`
	ExpiresAt  time.Time    `json:"expires_at"`
	Expired    bool         `json:"expired"`
	ItemsCount int          `json:"items_count"`
	Total      domain.Money `json:"total"`
	Lines      domain.Cart  `json:"lines"`
}

// showCart reads without the expiry side effect so an expired cart can still
// be inspected.
func showCart(ctx context.Context, w io.Writer, s *cartstore.Store, now time.Time) error {
	env, err := s.Peek(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(w, "no cart stored for session %s\n", s.Session())
		return nil
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cartReport{
		Session:    s.Session(),
		ExpiresAt:  env.ExpiresAt,
		Expired:    env.Expired(now),
		ItemsCount: env.Cart.ItemsCount(),
		Total:      env.Cart.TotalPrice(),
		Lines:      env.Cart,
	})
}
