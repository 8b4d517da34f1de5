package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage"
)

// TenantRepo implements storage.TenantRepository using PostgreSQL.
type TenantRepo struct {
	db *DB
}

// NewTenantRepo creates a new PostgreSQL tenant repository.
func NewTenantRepo(db *DB) *TenantRepo {
	return &TenantRepo{db: db}
}

type tenantRow struct {
	AppID        string `db:"app_id"`
	APISecret    string `db:"api_secret"`
	Origins      []byte `db:"origins"`
	Destinations []byte `db:"destinations"`
	FixedPrices  []byte `db:"fixed_prices"`
}

// GetByAppID retrieves a tenant by application id.
func (r *TenantRepo) GetByAppID(ctx context.Context, appID string) (*domain.Tenant, error) {
	var row tenantRow
	err := r.db.GetContext(ctx, &row,
		`SELECT app_id, api_secret, origins, destinations, fixed_prices
		 FROM tenants WHERE app_id = $1`, appID)
	if err == sql.ErrNoRows {
		return nil, storage.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return row.toDomain()
}

// GetAll retrieves all tenants.
func (r *TenantRepo) GetAll(ctx context.Context) ([]*domain.Tenant, error) {
	var rows []tenantRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT app_id, api_secret, origins, destinations, fixed_prices FROM tenants`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	tenants := make([]*domain.Tenant, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

func (row tenantRow) toDomain() (*domain.Tenant, error) {
	t := &domain.Tenant{
		AppID:     row.AppID,
		APISecret: row.APISecret,
	}

	if len(row.Origins) > 0 {
		if err := json.Unmarshal(row.Origins, &t.Origins); err != nil {
			return nil, fmt.Errorf("failed to decode tenant origins: %w", err)
		}
	}
	if len(row.Destinations) > 0 {
		if err := json.Unmarshal(row.Destinations, &t.Destinations); err != nil {
			return nil, fmt.Errorf("failed to decode tenant destinations: %w", err)
		}
	}
	if len(row.FixedPrices) > 0 {
		// JSON object keys are strings; price keys are address lengths
		var prices map[string]float64
		if err := json.Unmarshal(row.FixedPrices, &prices); err != nil {
			return nil, fmt.Errorf("failed to decode tenant prices: %w", err)
		}
		t.FixedPrices = make(map[int]float64, len(prices))
		for k, v := range prices {
			length, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("invalid price key %q: %w", k, err)
			}
			t.FixedPrices[length] = v
		}
	}

	return t, nil
}
