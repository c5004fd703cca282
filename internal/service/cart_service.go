package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CartAPI is the remote cart resource. Every call is scoped to cartID.
type CartAPI interface {
	GetCart(ctx context.Context, cartID string) (*domain.CartSnapshot, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) error
	UpdateItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	ClearCart(ctx context.Context, cartID string) error
}

type ProductResolver interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) ([]*domain.Product, error)
	UnitData(p *domain.Product) domain.UnitData
}

type IdentityProvider interface {
	GetOrCreate(ctx context.Context) string
}

type MutationKind string

const (
	MutationAdd    MutationKind = "add"
	MutationUpdate MutationKind = "update"
	MutationRemove MutationKind = "remove"
	MutationClear  MutationKind = "clear"
)

type MutationState string

const (
	MutationIssued    MutationState = "issued"
	MutationPending   MutationState = "pending"
	MutationSucceeded MutationState = "succeeded"
	MutationFailed    MutationState = "failed"
)

// Mutation records one cart mutation from issue to settlement.
type Mutation struct {
	ID        string
	Kind      MutationKind
	ProductID string
	Quantity  int
	State     MutationState
	Err       error
	IssuedAt  time.Time
	SettledAt time.Time
}

func (m Mutation) Settled() bool {
	return m.State == MutationSucceeded || m.State == MutationFailed
}

var mutationMessages = map[MutationKind][2]string{
	MutationAdd:    {"Product added to cart", "Failed to add product to cart"},
	MutationUpdate: {"Quantity updated", "Failed to update quantity"},
	MutationRemove: {"Product removed from cart", "Failed to remove product"},
	MutationClear:  {"Cart cleared", "Failed to clear cart"},
}

// CartService applies cart mutations optimistically to the local store, sends them to the server and,
// once settled successfully, refetches the server cart and replaces the local lines with it.
// Mutations are not serialized; whichever refetch completes last wins.
type CartService struct {
	api      CartAPI
	store    *store.Store
	identity IdentityProvider
	catalog  ProductResolver
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	sfg singleflight.Group // collapses concurrent Load calls

	mu         sync.Mutex
	loadedFor  string
	lastRemote *domain.CartSnapshot
	pending    map[string]*Mutation
}

type CartServiceConfig struct {
	API      CartAPI
	Store    *store.Store
	Identity IdentityProvider
	Catalog  ProductResolver
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewCartService(cfg CartServiceConfig) *CartService {
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CartService{
		api:      cfg.API,
		store:    cfg.Store,
		identity: cfg.Identity,
		catalog:  cfg.Catalog,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		pending:  make(map[string]*Mutation),
	}
}

// CartID is the identity every remote cart call is scoped to.
func (s *CartService) CartID(ctx context.Context) string {
	return s.identity.GetOrCreate(ctx)
}

// Load fetches the server cart unless one was already loaded for the current identity.
// On failure the store keeps its rehydrated lines.
func (s *CartService) Load(ctx context.Context) error {
	cartID := s.CartID(ctx)

	s.mu.Lock()
	loaded := s.loadedFor == cartID
	s.mu.Unlock()
	if loaded {
		return nil
	}

	// joined callers share this request, so one caller going away must not abort it
	sharedCtx := context.WithoutCancel(ctx)
	_, err, _ := s.sfg.Do("load:"+cartID, func() (interface{}, error) {
		return nil, s.refresh(sharedCtx, cartID)
	})
	return err
}

// Refresh invalidates the local view and refetches the server cart.
func (s *CartService) Refresh(ctx context.Context) error {
	return s.refresh(ctx, s.CartID(ctx))
}

func (s *CartService) refresh(ctx context.Context, cartID string) error {
	snap, err := s.api.GetCart(ctx, cartID)
	s.metrics.Fetch(err)
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("cart refetch failed", "cart_id", cartID, "error", err)
		return &RemoteFetchError{Resource: "cart", Err: err}
	}

	s.store.ReplaceAll(snap.Items)

	s.mu.Lock()
	s.loadedFor = cartID
	s.lastRemote = snap
	s.mu.Unlock()
	return nil
}

// AddItem adds quantity units of productID. When unit is nil the display data is resolved
// from the catalog; if that fails nothing is mutated.
func (s *CartService) AddItem(ctx context.Context, productID string, quantity int, unit *domain.UnitData) (Mutation, error) {
	if quantity < 1 {
		return Mutation{}, store.ErrInvalidQuantity
	}

	if unit == nil {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			fetchErr := &RemoteFetchError{Resource: "product " + productID, Err: err}
			s.notifier.Notify(ctx, failure(mutationMessages[MutationAdd][1]))
			return Mutation{}, fetchErr
		}
		u := s.catalog.UnitData(product)
		unit = &u
	}

	if err := s.store.AddLine(productID, *unit, quantity); err != nil {
		return Mutation{}, err
	}

	m, cartID, remoteCtx := s.issue(ctx, MutationAdd, productID, quantity)
	err := s.api.AddItem(remoteCtx, cartID, productID, quantity)
	return s.settle(remoteCtx, m, cartID, err)
}

// UpdateQuantity sets the quantity of productID. A quantity below 1 removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) (Mutation, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, productID)
	}

	s.store.SetQuantity(productID, quantity)

	m, cartID, remoteCtx := s.issue(ctx, MutationUpdate, productID, quantity)
	err := s.api.UpdateItem(remoteCtx, cartID, productID, quantity)
	return s.settle(remoteCtx, m, cartID, err)
}

func (s *CartService) RemoveItem(ctx context.Context, productID string) (Mutation, error) {
	s.store.RemoveLine(productID)

	m, cartID, remoteCtx := s.issue(ctx, MutationRemove, productID, 0)
	err := s.api.RemoveItem(remoteCtx, cartID, productID)
	return s.settle(remoteCtx, m, cartID, err)
}

func (s *CartService) ClearCart(ctx context.Context) (Mutation, error) {
	s.store.Clear()

	m, cartID, remoteCtx := s.issue(ctx, MutationClear, "", 0)
	err := s.api.ClearCart(remoteCtx, cartID)
	return s.settle(remoteCtx, m, cartID, err)
}

// issue registers a mutation and returns the context its remote call runs on.
// The remote call is not cancelled when the caller stops listening.
func (s *CartService) issue(ctx context.Context, kind MutationKind, productID string, quantity int) (*Mutation, string, context.Context) {
	m := &Mutation{
		ID:        uuid.NewString(),
		Kind:      kind,
		ProductID: productID,
		Quantity:  quantity,
		State:     MutationIssued,
		IssuedAt:  time.Now(),
	}
	cartID := s.CartID(ctx)

	s.mu.Lock()
	s.pending[m.ID] = m
	m.State = MutationPending
	s.mu.Unlock()

	logger.WithContext(ctx, s.logger).Debug("cart mutation issued",
		"mutation_id", m.ID, "op", kind, "product_id", productID, "quantity", quantity, "cart_id", cartID)

	return m, cartID, context.WithoutCancel(ctx)
}

// settle records the outcome of m and, on success, refetches the server cart.
// A failed refetch does not change the outcome; it is returned as a RemoteFetchError.
func (s *CartService) settle(ctx context.Context, m *Mutation, cartID string, remoteErr error) (Mutation, error) {
	s.metrics.Mutation(string(m.Kind), remoteErr)

	s.mu.Lock()
	delete(s.pending, m.ID)
	m.SettledAt = time.Now()
	if remoteErr != nil {
		m.State = MutationFailed
		m.Err = &RemoteMutationError{Op: string(m.Kind), ProductID: m.ProductID, Err: remoteErr}
	} else {
		m.State = MutationSucceeded
	}
	result := *m
	s.mu.Unlock()

	log := logger.WithContext(ctx, s.logger)
	msgs := mutationMessages[m.Kind]
	if remoteErr != nil {
		log.Warn("cart mutation failed", "mutation_id", m.ID, "op", m.Kind, "product_id", m.ProductID, "error", remoteErr)
		s.notifier.Notify(ctx, failure(msgs[1]))
		return result, result.Err
	}

	log.Debug("cart mutation succeeded", "mutation_id", m.ID, "op", m.Kind)
	s.notifier.Notify(ctx, success(msgs[0]))

	if err := s.refresh(ctx, cartID); err != nil {
		return result, err
	}
	return result, nil
}

// Pending lists mutations that have been issued but not settled, oldest first.
func (s *CartService) Pending() []Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Mutation, 0, len(s.pending))
	for _, m := range s.pending {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

// Snapshot is the local view of the cart: the store lines and their recomputed subtotal.
// Tax and Total are the last values the server reported; until a cart is loaded for the current
// identity Total is the local subtotal.
func (s *CartService) Snapshot(ctx context.Context) domain.CartSnapshot {
	snap := s.store.Snapshot()
	snap.ID = s.CartID(ctx)

	s.mu.Lock()
	if s.lastRemote != nil && s.loadedFor == snap.ID {
		snap.Tax = s.lastRemote.Tax
		snap.Total = s.lastRemote.Total
	}
	s.mu.Unlock()
	return snap
}

// Lines is the current local lines.
func (s *CartService) Lines() []domain.CartLine {
	return s.store.Lines()
}

// Products resolves catalog details for every line in the cart.
func (s *CartService) Products(ctx context.Context) ([]*domain.Product, error) {
	lines := s.store.Lines()
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, &RemoteFetchError{Resource: "products", Err: err}
	}
	return products, nil
}

// ForgetLoaded makes the next Load fetch again, e.g. after the identity was reset.
func (s *CartService) ForgetLoaded() {
	s.mu.Lock()
	s.loadedFor = ""
	s.lastRemote = nil
	s.mu.Unlock()
}

// IsStale reports whether err leaves the local view possibly out of date with the server.
func IsStale(err error) bool {
	var fetchErr *RemoteFetchError
	return errors.As(err, &fetchErr)
}
