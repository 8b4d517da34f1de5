package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

// StatisticRepo implements storage.StatisticRepository using PostgreSQL.
type StatisticRepo struct {
	db *DB
}

// NewStatisticRepo creates a new PostgreSQL statistic repository.
func NewStatisticRepo(db *DB) *StatisticRepo {
	return &StatisticRepo{db: db}
}

// Save records one signed transaction.
func (r *StatisticRepo) Save(ctx context.Context, stat *domain.Statistic) error {
	id := stat.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO statistics (id, origin, application_id, tx_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, stat.Origin, stat.ApplicationID, stat.TxType, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save statistic: %w", err)
	}
	return nil
}

// CountByOrigin returns per-tx-type totals for an origin/application.
func (r *StatisticRepo) CountByOrigin(
	ctx context.Context,
	origin, appID string,
) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT tx_type, COUNT(*) FROM statistics
		 WHERE origin = $1 AND application_id = $2
		 GROUP BY tx_type`, origin, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to count statistics: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var txType string
		var count int
		if err := rows.Scan(&txType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan statistic: %w", err)
		}
		counts[txType] = count
	}
	return counts, rows.Err()
}
