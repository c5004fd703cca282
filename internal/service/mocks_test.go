package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var errRemote = errors.New("remote unavailable")

// mockCartAPI keeps a server-side cart so refetches return server truth
type mockCartAPI struct {
	mu sync.Mutex

	prices map[string]decimal.Decimal
	lines  []domain.CartLine
	tax    decimal.Decimal
	total  *decimal.Decimal // reported instead of subtotal+tax when set

	failOps  map[string]error
	getErr   error
	gate     chan struct{} // when set, mutations wait on it
	getGate  chan struct{} // when set, GetCart waits on it
	calls    map[string]int
	cartIDs  []string
	ctxErrs  []error
	getCalls int
}

func newMockCartAPI() *mockCartAPI {
	return &mockCartAPI{
		prices: map[string]decimal.Decimal{
			"P1": decimal.RequireFromString("14999.99"),
			"P2": decimal.RequireFromString("19.99"),
		},
		failOps: map[string]error{},
		calls:   map[string]int{},
	}
}

func (m *mockCartAPI) enter(ctx context.Context, op, cartID string) error {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	m.cartIDs = append(m.cartIDs, cartID)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.failOps[op]
}

func (m *mockCartAPI) GetCart(ctx context.Context, cartID string) (*domain.CartSnapshot, error) {
	m.mu.Lock()
	gate := m.getGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	m.cartIDs = append(m.cartIDs, cartID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	items := make([]domain.CartLine, len(m.lines))
	copy(items, m.lines)
	sub := domain.SumLines(items)
	total := sub.Add(m.tax)
	if m.total != nil {
		total = *m.total
	}
	return &domain.CartSnapshot{ID: cartID, Items: items, Subtotal: sub, Tax: m.tax, Total: total}, nil
}

func (m *mockCartAPI) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	if err := m.enter(ctx, "add", cartID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines[i].Quantity += quantity
			return nil
		}
	}
	m.lines = append(m.lines, domain.CartLine{
		ID:        "L-" + productID,
		ProductID: productID,
		Name:      "Server " + productID,
		Price:     m.prices[productID],
		Quantity:  quantity,
	})
	return nil
}

func (m *mockCartAPI) UpdateItem(ctx context.Context, cartID, productID string, quantity int) error {
	if err := m.enter(ctx, "update", cartID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines[i].Quantity = quantity
		}
	}
	return nil
}

func (m *mockCartAPI) RemoveItem(ctx context.Context, cartID, productID string) error {
	if err := m.enter(ctx, "remove", cartID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.lines[:0]
	for _, l := range m.lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

func (m *mockCartAPI) ClearCart(ctx context.Context, cartID string) error {
	if err := m.enter(ctx, "clear", cartID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	return nil
}

func (m *mockCartAPI) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op == "get" {
		return m.getCalls
	}
	return m.calls[op]
}

func (m *mockCartAPI) set(fn func(m *mockCartAPI)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

type staticIdentity string

func (s staticIdentity) GetOrCreate(context.Context) string { return string(s) }

type mockCatalog struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (c *mockCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Product{ID: id, Name: "Catalog " + id, Price: decimal.RequireFromString("14999.99")}, nil
}

func (c *mockCatalog) GetProducts(ctx context.Context, ids []string) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		p, err := c.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *mockCatalog) UnitData(p *domain.Product) domain.UnitData {
	return domain.UnitData{Name: p.Name, Price: p.Price}
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Message)
	}
	return out
}

type mockOrderAPI struct {
	mu      sync.Mutex
	err     error
	gate    chan struct{}
	entered chan struct{}
	subs    []*domain.OrderSubmission

	listErr   error
	cancelErr error
	cancelMsg string
}

func (m *mockOrderAPI) CreateOrder(_ context.Context, sub *domain.OrderSubmission) (*domain.Order, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Order{ID: "O1", Status: domain.OrderStatusConfirmed, TotalAmount: sub.TotalAmount, Items: sub.Items}, nil
}

func (m *mockOrderAPI) submissions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *mockOrderAPI) ListOrders(_ context.Context, q domain.OrderQuery) (*domain.OrderPage, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &domain.OrderPage{
		Orders:     []domain.Order{{ID: "O1", Status: domain.OrderStatusShipped}},
		Pagination: domain.Pagination{CurrentPage: q.Page, PageSize: q.PageSize, TotalItems: 1, TotalPages: 1},
	}, nil
}

func (m *mockOrderAPI) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
}

func (m *mockOrderAPI) CancelOrder(_ context.Context, id string) (string, error) {
	if m.cancelErr != nil {
		return "", m.cancelErr
	}
	return m.cancelMsg, nil
}

func (m *mockOrderAPI) GetTracking(_ context.Context, id string) (*domain.TrackingInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &domain.TrackingInfo{ID: id, Status: "Shipped", TrackingNumber: "TRK-" + id}, nil
}
