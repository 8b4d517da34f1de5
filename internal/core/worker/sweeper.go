package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/config"
	"github.com/nixer89/vanity-search-backend/internal/core/domain"
	"github.com/nixer89/vanity-search-backend/internal/metrics"
)

// correlationSweepStore is the slice of the correlation store the sweep needs.
type correlationSweepStore interface {
	Expired(ctx context.Context, cutoff time.Time) ([]*domain.CorrelationRecord, error)
	Delete(ctx context.Context, appID, payloadID string) error
}

// Sweeper deletes correlation records whose webhook never arrived. Records
// are kept for a grace period past their payload expiry before removal.
type Sweeper struct {
	cfg   config.SweepConfig
	store correlationSweepStore
}

// NewSweeper creates a new Sweeper worker.
func NewSweeper(cfg config.SweepConfig, store correlationSweepStore) *Sweeper {
	return &Sweeper{cfg: cfg, store: store}
}

// Start runs the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Initial sweep
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Grace)

	records, err := s.store.Expired(ctx, cutoff)
	if err != nil {
		slog.Error("[Sweeper] failed to list expired correlations", "error", err)
		return
	}

	swept := 0
	for _, rec := range records {
		if err := s.store.Delete(ctx, rec.ApplicationID, rec.PayloadID); err != nil {
			slog.Error("[Sweeper] failed to delete correlation",
				"payload_id", rec.PayloadID, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		metrics.SweptRecords.Add(float64(swept))
		slog.Info("[Sweeper] removed expired correlations", "count", swept)
	}
}
