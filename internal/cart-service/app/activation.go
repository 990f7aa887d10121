package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
)

// activate fetches the cart's items in the background and loads them. At most
// one activation runs per session. The goroutine is detached from the caller's
// cancellation but keeps its trace, and stops when the service shuts down.
func (s *CartService) activate(ctx context.Context, sess *session) {
	if !sess.activating.CompareAndSwap(false, true) {
		return
	}

	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.stopCtx, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sess.activating.Store(false)
		defer cancel()
		defer stop()
		s.runActivation(actx, sess.cart)
	}()
}

func (s *CartService) runActivation(ctx context.Context, cart *domain.Cart) {
	ctx, span := s.tracer.Start(ctx, "cart.activate", trace.WithAttributes(attribute.String("cart.id", cart.ID())))
	defer span.End()

	attempts := 0
	var items []domain.LineItem
	op := func() error {
		attempts++
		attemptCtx := ctx
		if s.retry.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.retry.AttemptTimeout)
			defer cancel()
		}
		fetched, err := s.source.Fetch(attemptCtx, cart.ID())
		if err != nil {
			return err
		}
		items = fetched
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "cart fetch failed, retrying", "cart_id", cart.ID(), "attempt", attempts, "retry_in", wait, "error", err)
		cart.MarkLoadFailed(fmt.Errorf("attempt %d failed, retrying: %w", attempts, err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(s.newBackOff(), ctx), notify)
	if err == nil {
		err = cart.Load(items)
	}
	span.SetAttributes(attribute.Int("cart.fetch_attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cart.MarkLoadFailed(err)
		slog.ErrorContext(ctx, "cart activation failed", "cart_id", cart.ID(), "attempts", attempts, "error", err)
		s.record(ctx, cart, cartlog.ActionLoadFailed, "", 0, err)
		return
	}

	slog.InfoContext(ctx, "cart loaded", "cart_id", cart.ID(), "items", len(items), "attempts", attempts)
	s.record(ctx, cart, cartlog.ActionLoaded, "", 0, nil)
	if s.isLive(cart) {
		s.saveSnapshot(ctx, cart)
	}
}

func (s *CartService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.retry.InitialInterval > 0 {
		b.InitialInterval = s.retry.InitialInterval
	}
	if s.retry.MaxInterval > 0 {
		b.MaxInterval = s.retry.MaxInterval
	}
	b.MaxElapsedTime = s.retry.MaxElapsedTime
	b.Reset()
	return b
}

func (s *CartService) isLive(cart *domain.Cart) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[cart.ID()]
	return ok && sess.cart == cart
}
