package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage"
)

// Registry caches tenant records and resolves request origins to tenants.
// Origin entries are matched exactly first, then as regular expressions, so a
// tenant can register both fixed domains and wildcard patterns.
type Registry struct {
	repo storage.TenantRepository
	ttl  time.Duration

	mu       sync.RWMutex
	tenants  []*domain.Tenant
	byAppID  map[string]*domain.Tenant
	loadedAt time.Time
}

// NewRegistry creates a registry backed by the given repository. Entries are
// reloaded after ttl.
func NewRegistry(repo storage.TenantRepository, ttl time.Duration) *Registry {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{
		repo:    repo,
		ttl:     ttl,
		byAppID: make(map[string]*domain.Tenant),
	}
}

// load refreshes the cache if it is stale.
func (r *Registry) load(ctx context.Context) error {
	r.mu.RLock()
	fresh := time.Since(r.loadedAt) < r.ttl && r.tenants != nil
	r.mu.RUnlock()
	if fresh {
		return nil
	}

	tenants, err := r.repo.GetAll(ctx)
	if err != nil {
		r.mu.RLock()
		stale := r.tenants != nil
		r.mu.RUnlock()
		if stale {
			// Keep serving the stale cache over failing requests.
			slog.Warn("tenant reload failed, serving stale cache", "error", err)
			return nil
		}
		return fmt.Errorf("load tenants: %w", err)
	}

	byAppID := make(map[string]*domain.Tenant, len(tenants))
	for _, t := range tenants {
		byAppID[t.AppID] = t
	}

	r.mu.Lock()
	r.tenants = tenants
	r.byAppID = byAppID
	r.loadedAt = time.Now()
	r.mu.Unlock()
	return nil
}

// ResolveOrigin returns the tenant whose origin list matches the given
// origin. Returns storage.ErrTenantNotFound when nothing matches.
func (r *Registry) ResolveOrigin(ctx context.Context, origin string) (*domain.Tenant, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Exact entries win over patterns regardless of tenant order.
	for _, t := range r.tenants {
		for _, entry := range t.Origins {
			if entry == origin {
				return t, nil
			}
		}
	}
	for _, t := range r.tenants {
		for _, entry := range t.Origins {
			re, err := regexp.Compile(entry)
			if err != nil {
				continue
			}
			if re.MatchString(origin) {
				return t, nil
			}
		}
	}
	return nil, storage.ErrTenantNotFound
}

// ByAppID returns the tenant with the given application id.
func (r *Registry) ByAppID(ctx context.Context, appID string) (*domain.Tenant, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byAppID[appID]
	if !ok {
		return nil, storage.ErrTenantNotFound
	}
	return t, nil
}

// OriginAllowed reports whether any tenant claims the given origin.
func (r *Registry) OriginAllowed(ctx context.Context, origin string) bool {
	_, err := r.ResolveOrigin(ctx, origin)
	return err == nil
}

// All returns every known tenant.
func (r *Registry) All(ctx context.Context) ([]*domain.Tenant, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tenants, nil
}
