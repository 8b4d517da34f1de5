package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

// PurchaseRepo implements storage.PurchaseRepository using PostgreSQL.
type PurchaseRepo struct {
	db *DB
}

// NewPurchaseRepo creates a new PostgreSQL purchase repository.
func NewPurchaseRepo(db *DB) *PurchaseRepo {
	return &PurchaseRepo{db: db}
}

// Reserve marks a vanity address as purchased by a buyer. Reserving an
// already reserved address is a no-op, so a duplicate webhook cannot steal a
// reservation.
func (r *PurchaseRepo) Reserve(ctx context.Context, p *domain.Purchase) error {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vanity_purchases
		 (id, origin, application_id, buyer_account, vanity_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (vanity_address) DO NOTHING`,
		id, p.Origin, p.ApplicationID, p.BuyerAccount, p.VanityAddress, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to reserve vanity address: %w", err)
	}
	return nil
}

// GetByBuyer retrieves all addresses reserved by a buyer account.
func (r *PurchaseRepo) GetByBuyer(ctx context.Context, account string) ([]string, error) {
	var addresses []string
	err := r.db.SelectContext(ctx, &addresses,
		`SELECT vanity_address FROM vanity_purchases WHERE buyer_account = $1`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases: %w", err)
	}
	return addresses, nil
}

// GetAllAddresses retrieves every reserved address.
func (r *PurchaseRepo) GetAllAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	err := r.db.SelectContext(ctx, &addresses,
		`SELECT vanity_address FROM vanity_purchases`)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchased addresses: %w", err)
	}
	return addresses, nil
}
