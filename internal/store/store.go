package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	// StorageKey is the durable key holding the cached cart lines.
	StorageKey = "cart-storage"

	persistTimeout = time.Second
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Listener is called with a copy of the lines after every mutation.
type Listener func(lines []domain.CartLine)

// Store is the local projection of the cart. It is the render source for the UI and is persisted
// after every mutation so it can be rehydrated at startup.
type Store struct {
	mu    sync.RWMutex
	lines []domain.CartLine

	repo   repository.KeyValueRepository
	logger *slog.Logger

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New creates a store and rehydrates it from repo. A nil repo gives a memory-only store.
func New(ctx context.Context, repo repository.KeyValueRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		repo:      repo,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
	s.rehydrate(ctx)
	return s
}

// rehydrate loads persisted lines; anything unreadable is treated as an empty cart
func (s *Store) rehydrate(ctx context.Context) {
	if s.repo == nil {
		return
	}

	data, err := s.repo.Get(ctx, StorageKey)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load persisted cart", "error", err)
		return
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Warn("persisted cart is corrupt, starting empty", "error", err)
		return
	}
	s.lines = dedupe(lines)
}

// AddLine increments the quantity of an existing line by delta, or appends a new line with
// quantity delta.
func (s *Store) AddLine(productID string, unit domain.UnitData, delta int) error {
	if delta < 1 {
		return ErrInvalidQuantity
	}

	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		if i := indexOf(lines, productID); i >= 0 {
			lines[i].Quantity += delta
			return lines
		}
		return append(lines, domain.CartLine{
			ID:        productID,
			ProductID: productID,
			Name:      unit.Name,
			Price:     unit.Price,
			Quantity:  delta,
			ImageURL:  unit.ImageURL,
		})
	})
	return nil
}

// RemoveLine deletes the line for productID. Absent products are ignored.
func (s *Store) RemoveLine(productID string) {
	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		return removeAt(lines, indexOf(lines, productID))
	})
}

// SetQuantity updates the quantity in place. A quantity below 1 removes the line.
func (s *Store) SetQuantity(productID string, quantity int) {
	s.mutate(func(lines []domain.CartLine) []domain.CartLine {
		i := indexOf(lines, productID)
		if quantity < 1 {
			return removeAt(lines, i)
		}
		if i >= 0 {
			lines[i].Quantity = quantity
		}
		return lines
	})
}

// ReplaceAll swaps in lines wholesale. Duplicate product ids resolve to the last occurrence.
func (s *Store) ReplaceAll(lines []domain.CartLine) {
	replacement := dedupe(lines)
	s.mutate(func([]domain.CartLine) []domain.CartLine {
		return replacement
	})
}

func (s *Store) Clear() {
	s.mutate(func([]domain.CartLine) []domain.CartLine {
		return nil
	})
}

// Total is Σ price·quantity over the current lines, computed on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SumLines(s.lines)
}

func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLines(s.lines)
}

// Snapshot returns the lines and their total read under a single lock.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := domain.SumLines(s.lines)
	return domain.CartSnapshot{
		Items:    copyLines(s.lines),
		Subtotal: total,
		Total:    total,
	}
}

// Line returns the line for productID, if any.
func (s *Store) Line(productID string) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.lines, productID); i >= 0 {
		return s.lines[i], true
	}
	return domain.CartLine{}, false
}

// Subscribe registers fn for change notifications and returns a function that unregisters it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// mutate applies fn under the write lock, persists the result, then notifies listeners
func (s *Store) mutate(fn func(lines []domain.CartLine) []domain.CartLine) {
	s.mu.Lock()
	s.lines = fn(copyLines(s.lines))
	current := copyLines(s.lines)
	s.persist(current)
	s.mu.Unlock()

	s.notify(current)
}

// persist runs under the write lock so the stored value always matches the latest state
func (s *Store) persist(lines []domain.CartLine) {
	if s.repo == nil {
		return
	}

	data, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error("failed to encode cart", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.Put(ctx, StorageKey, data); err != nil {
		s.logger.Warn("failed to persist cart", "error", err)
	}
}

func (s *Store) notify(lines []domain.CartLine) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(copyLines(lines))
	}
}

func indexOf(lines []domain.CartLine, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func removeAt(lines []domain.CartLine, i int) []domain.CartLine {
	if i < 0 {
		return lines
	}
	return append(lines[:i], lines[i+1:]...)
}

// dedupe keeps the first position of each product id with the value of its last occurrence and
// drops lines that violate quantity >= 1
func dedupe(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.ProductID]; ok {
			out[i] = l
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}

	valid := out[:0]
	for _, l := range out {
		if l.Quantity >= 1 {
			valid = append(valid, l)
		}
	}
	return valid
}

func copyLines(lines []domain.CartLine) []domain.CartLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}
