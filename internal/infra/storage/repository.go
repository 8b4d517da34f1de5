package storage

import (
	"context"
	"errors"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

var (
	// ErrTenantNotFound is returned when no tenant matches a lookup.
	ErrTenantNotFound = errors.New("tenant not found")
)

// TenantRepository handles tenant configuration storage.
type TenantRepository interface {
	// GetByAppID retrieves a tenant by application id
	GetByAppID(ctx context.Context, appID string) (*domain.Tenant, error)

	// GetAll retrieves all tenants
	GetAll(ctx context.Context) ([]*domain.Tenant, error)
}

// StatisticRepository records signed-transaction statistics.
type StatisticRepository interface {
	// Save records one signed transaction
	Save(ctx context.Context, stat *domain.Statistic) error

	// CountByOrigin returns per-tx-type totals for an origin/application
	CountByOrigin(ctx context.Context, origin, appID string) (map[string]int, error)
}

// PurchaseRepository handles vanity purchase reservations.
type PurchaseRepository interface {
	// Reserve marks a vanity address as purchased by a buyer
	Reserve(ctx context.Context, p *domain.Purchase) error

	// GetByBuyer retrieves all addresses reserved by a buyer account
	GetByBuyer(ctx context.Context, account string) ([]string, error)

	// GetAllAddresses retrieves every reserved address
	GetAllAddresses(ctx context.Context) ([]string, error)
}

// HistoryRepository handles payload-history entries keyed by user token and
// ledger account.
type HistoryRepository interface {
	// Save stores a history entry
	Save(ctx context.Context, entry *domain.HistoryEntry) error

	// TokenForAccount resolves the most recent issued user token for an
	// account, or "" when unknown
	TokenForAccount(ctx context.Context, appID, account string) (string, error)

	// PayloadIDsByAccountAndType returns payload ids for an account filtered
	// by transaction type, oldest first
	PayloadIDsByAccountAndType(
		ctx context.Context,
		appID, account, txType string,
	) ([]string, error)
}
