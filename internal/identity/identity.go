package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
)

// StorageKey is the durable key holding the cart identity.
const StorageKey = "cartId"

// Provider hands out the installation's cart identity. The identity is generated once and persisted;
// if durable storage is unavailable a process-local id is used instead.
type Provider struct {
	repo   repository.KeyValueRepository
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

func NewProvider(repo repository.KeyValueRepository, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{repo: repo, logger: logger}
}

func (p *Provider) GetOrCreate(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != "" {
		return p.current
	}

	if p.repo == nil {
		p.current = uuid.NewString()
		p.logger.Warn("no durable storage, using process-local cart id", "cart_id", p.current)
		return p.current
	}

	stored, err := p.repo.Get(ctx, StorageKey)
	if err == nil && len(stored) > 0 {
		p.current = string(stored)
		return p.current
	}
	if err != nil && !errors.Is(err, repository.ErrKeyNotFound) {
		p.current = uuid.NewString()
		p.logger.Warn("cart id storage unavailable, using process-local cart id",
			"cart_id", p.current, "error", err)
		return p.current
	}

	id := uuid.NewString()
	if errPut := p.repo.Put(ctx, StorageKey, []byte(id)); errPut != nil {
		p.logger.Warn("failed to persist cart id, using process-local cart id",
			"cart_id", id, "error", errPut)
	}
	p.current = id
	return p.current
}

// Reset replaces the identity wholesale. The server will see a fresh cart afterwards.
func (p *Provider) Reset(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	if p.repo != nil {
		if err := p.repo.Put(ctx, StorageKey, []byte(id)); err != nil {
			return "", fmt.Errorf("failed to persist cart id: %w", err)
		}
	}
	p.current = id
	return id, nil
}
