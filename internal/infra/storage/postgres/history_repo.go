package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

// HistoryRepo implements storage.HistoryRepository using PostgreSQL.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new PostgreSQL history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Save stores a history entry.
func (r *HistoryRepo) Save(ctx context.Context, entry *domain.HistoryEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payload_history
		 (id, origin, referer, application_id, user_token, account, payload_id, tx_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, entry.Origin, entry.Referer, entry.ApplicationID,
		entry.UserToken, entry.Account, entry.PayloadID, entry.TxType, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// TokenForAccount resolves the most recent issued user token for an account.
func (r *HistoryRepo) TokenForAccount(ctx context.Context, appID, account string) (string, error) {
	var token string
	err := r.db.GetContext(ctx, &token,
		`SELECT user_token FROM payload_history
		 WHERE application_id = $1 AND account = $2 AND user_token <> ''
		 ORDER BY created_at DESC LIMIT 1`, appID, account)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve user token: %w", err)
	}
	return token, nil
}

// PayloadIDsByAccountAndType returns payload ids for an account filtered by
// transaction type, oldest first.
func (r *HistoryRepo) PayloadIDsByAccountAndType(
	ctx context.Context,
	appID, account, txType string,
) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT payload_id FROM payload_history
		 WHERE application_id = $1 AND account = $2 AND LOWER(tx_type) = LOWER($3)
		 ORDER BY created_at ASC`, appID, account, txType)
	if err != nil {
		return nil, fmt.Errorf("failed to list payload ids: %w", err)
	}
	return ids, nil
}
