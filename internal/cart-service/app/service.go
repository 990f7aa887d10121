// Package app hosts cart sessions: it activates carts from a data source,
// applies user mutations, and records every transition.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/ports"
	"github.com/jcmexdev/storefront-cart/internal/pkg/cache"
)

var _ ports.CartService = (*CartService)(nil)

const tracerName = "github.com/jcmexdev/storefront-cart/internal/cart-service/app"

// RetryPolicy bounds how activation retries a failing fetch.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	AttemptTimeout  time.Duration
}

// Options configures a CartService. Source is required; Cache and Log may be
// nil to disable snapshots and the audit trail.
type Options struct {
	Source     ports.DataSource
	Cache      cache.Cache
	Log        cartlog.Repository
	Policy     domain.UnknownItemPolicy
	Retry      RetryPolicy
	SessionTTL time.Duration
}

type session struct {
	cart       *domain.Cart
	lastSeen   atomic.Int64
	activating atomic.Bool
}

func (s *session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// CartService owns every live cart session.
type CartService struct {
	mu       sync.RWMutex
	sessions map[string]*session

	source     ports.DataSource
	cache      cache.Cache
	log        cartlog.Repository
	policy     domain.UnknownItemPolicy
	retry      RetryPolicy
	sessionTTL time.Duration
	tracer     trace.Tracer
	now        func() time.Time

	wg         sync.WaitGroup
	stopCtx    context.Context
	stopCancel context.CancelFunc
}

func NewCartService(opts Options) *CartService {
	stopCtx, stopCancel := context.WithCancel(context.Background())
	return &CartService{
		sessions:   make(map[string]*session),
		source:     opts.Source,
		cache:      opts.Cache,
		log:        opts.Log,
		policy:     opts.Policy,
		retry:      opts.Retry,
		sessionTTL: opts.SessionTTL,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		stopCtx:    stopCtx,
		stopCancel: stopCancel,
	}
}

// Open creates a cart in LOADING and activates it in the background. Opening
// an id that is already live returns the existing cart.
func (s *CartService) Open(ctx context.Context, externalID string) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "cart.open")
	defer span.End()

	id := externalID
	if id == "" {
		id = uuid.NewString()
	}
	span.SetAttributes(attribute.String("cart.id", id))

	if cart, err := s.Get(ctx, id); err == nil {
		return cart.Snapshot(), nil
	}

	sess := &session{cart: domain.NewCart(id, s.policy)}
	sess.touch(s.now())

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return existing.cart.Snapshot(), nil
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	slog.InfoContext(ctx, "cart opened", "cart_id", id)
	s.record(ctx, sess.cart, cartlog.ActionOpened, "", 0, nil)

	s.activate(ctx, sess)
	return sess.cart.Snapshot(), nil
}

// Reload retries activation of a cart that is still LOADING.
func (s *CartService) Reload(ctx context.Context, cartID string) (domain.Snapshot, error) {
	sess, err := s.session(ctx, cartID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if sess.cart.State() == domain.StateReady {
		return domain.Snapshot{}, ErrAlreadyReady
	}
	s.activate(ctx, sess)
	return sess.cart.Snapshot(), nil
}

// Get returns a live cart, restoring it from the snapshot cache when it is not
// held in memory.
func (s *CartService) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	sess, err := s.session(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return sess.cart, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) (domain.Snapshot, error) {
	return s.mutate(ctx, "cart.update_quantity", cartID, cartlog.ActionQuantityUpdated, itemID, quantity,
		func(c *domain.Cart) error { return c.UpdateQuantity(itemID, quantity) })
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID string) (domain.Snapshot, error) {
	return s.mutate(ctx, "cart.remove_item", cartID, cartlog.ActionItemRemoved, itemID, 0,
		func(c *domain.Cart) error { return c.RemoveItem(itemID) })
}

func (s *CartService) AddItem(ctx context.Context, cartID string, item domain.LineItem) (domain.LineItem, domain.Snapshot, error) {
	var added domain.LineItem
	snap, err := s.mutate(ctx, "cart.add_item", cartID, cartlog.ActionItemAdded, item.SKU, item.Quantity,
		func(c *domain.Cart) error {
			var err error
			added, err = c.AddItem(item)
			return err
		})
	return added, snap, err
}

// Close discards a cart session, ending its subscriptions and dropping its snapshot.
func (s *CartService) Close(ctx context.Context, cartID string) error {
	ctx, span := s.tracer.Start(ctx, "cart.close", trace.WithAttributes(attribute.String("cart.id", cartID)))
	defer span.End()

	sess, err := s.session(ctx, cartID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, cartID)
	s.mu.Unlock()

	sess.cart.CloseSubscriptions()
	s.dropSnapshot(ctx, cartID)
	s.record(ctx, sess.cart, cartlog.ActionClosed, "", 0, nil)
	slog.InfoContext(ctx, "cart closed", "cart_id", cartID)
	return nil
}

// History returns the audit trail of a cart, oldest first. A cart with no
// entries, or with no audit log configured and no live session, is reported as
// ErrCartNotFound.
func (s *CartService) History(ctx context.Context, cartID string) ([]cartlog.Entry, error) {
	if s.log == nil {
		if _, err := s.session(ctx, cartID); err != nil {
			return nil, err
		}
		return []cartlog.Entry{}, nil
	}
	entries, err := s.log.List(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrCartNotFound
	}
	return entries, nil
}

// Ping reports whether the snapshot cache and the audit log are reachable.
func (s *CartService) Ping(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("snapshot cache: %w", err)
		}
	}
	if s.log != nil {
		if err := s.log.Ping(ctx); err != nil {
			return fmt.Errorf("cart log: %w", err)
		}
	}
	return nil
}

// Len returns the number of carts held in memory.
func (s *CartService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts carts idle for longer than the session TTL. A cart with an
// open subscription is never idle. Snapshots of evicted carts stay in the
// cache until it expires them.
func (s *CartService) Sweep(now time.Time) int {
	if s.sessionTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.sessionTTL).UnixNano()

	s.mu.Lock()
	var evicted []*session
	for id, sess := range s.sessions {
		if sess.activating.Load() || sess.lastSeen.Load() > cutoff || sess.cart.SubscriberCount() > 0 {
			continue
		}
		delete(s.sessions, id)
		evicted = append(evicted, sess)
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.cart.CloseSubscriptions()
	}
	return len(evicted)
}

// Run sweeps idle carts until ctx is done.
func (s *CartService) Run(ctx context.Context) {
	if s.sessionTTL <= 0 {
		return
	}
	interval := s.sessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				slog.InfoContext(ctx, "evicted idle carts", "count", n)
			}
		}
	}
}

// Shutdown cancels in-flight activations and waits for them to return.
func (s *CartService) Shutdown(ctx context.Context) error {
	s.stopCancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every activation started so far has finished.
func (s *CartService) Wait() { s.wg.Wait() }

func (s *CartService) session(ctx context.Context, cartID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[cartID]
	s.mu.RUnlock()
	if ok {
		sess.touch(s.now())
		return sess, nil
	}

	cart, found := s.loadSnapshot(ctx, cartID)
	if !found {
		return nil, ErrCartNotFound
	}
	if s.wasClosed(ctx, cartID) {
		s.dropSnapshot(ctx, cartID)
		return nil, ErrCartNotFound
	}

	sess = &session{cart: cart}
	sess.touch(s.now())

	s.mu.Lock()
	if existing, ok := s.sessions[cartID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[cartID] = sess
	s.mu.Unlock()

	slog.InfoContext(ctx, "cart restored from snapshot", "cart_id", cartID, "state", cart.State())
	if cart.State() == domain.StateLoading {
		s.activate(ctx, sess)
	}
	return sess, nil
}

func (s *CartService) mutate(
	ctx context.Context,
	spanName, cartID string,
	action cartlog.Action,
	itemID string,
	quantity int,
	fn func(*domain.Cart) error,
) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("cart.id", cartID),
		attribute.String("cart.item_id", itemID),
		attribute.Int("cart.quantity", quantity),
	))
	defer span.End()

	cart, err := s.Get(ctx, cartID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.Snapshot{}, err
	}

	before := cart.Version()
	if err := fn(cart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record(ctx, cart, action, itemID, quantity, err)
		return domain.Snapshot{}, err
	}

	snap := cart.Snapshot()
	if snap.Version == before {
		span.SetAttributes(attribute.Bool("cart.unchanged", true))
		return snap, nil
	}

	s.record(ctx, cart, action, itemID, quantity, nil)
	s.saveSnapshot(ctx, cart)
	return snap, nil
}

// wasClosed reports whether the audit log's latest entry for a cart is CLOSED,
// which keeps a snapshot that outlived its Close from being restored.
func (s *CartService) wasClosed(ctx context.Context, cartID string) bool {
	if s.log == nil {
		return false
	}
	latest, err := s.log.GetLatest(ctx, cartID)
	if err != nil {
		if !errors.Is(err, cartlog.ErrNotFound) {
			slog.WarnContext(ctx, "failed to read cart log", "cart_id", cartID, "error", err)
		}
		return false
	}
	return latest.Action == cartlog.ActionClosed
}

// record appends to the audit trail. Failures are logged, never returned.
func (s *CartService) record(ctx context.Context, cart *domain.Cart, action cartlog.Action, itemID string, quantity int, cause error) {
	if s.log == nil {
		return
	}
	snap := cart.Snapshot()
	entry := cartlog.NewEntry(ctx, cart.ID(), action)
	entry.ItemID = itemID
	entry.Quantity = quantity
	entry.Version = snap.Version
	entry.Total = snap.TotalDisplay()
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := s.log.Save(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to write cart log", "cart_id", cart.ID(), "action", action, "error", err)
	}
}

// Snapshot returns the current view of a cart.
func (s *CartService) Snapshot(ctx context.Context, cartID string) (domain.Snapshot, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return cart.Snapshot(), nil
}

// Subscribe streams snapshots of a cart after every change. The channel is
// closed when the cart is closed or evicted, or when cancel is called.
func (s *CartService) Subscribe(ctx context.Context, cartID string) (<-chan domain.Snapshot, func(), error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := cart.Subscribe()
	return ch, cancel, nil
}
