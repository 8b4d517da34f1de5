package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

// CorrelationStore implements the ephemeral correlation store on Redis. Each
// record is stored as a JSON value under its own key and indexed in a sorted
// set scored by expiry, so the cleanup sweep can find expired records without
// scanning.
type CorrelationStore struct {
	rdb *redis.Client
}

// NewCorrelationStore creates a Redis-backed correlation store.
func NewCorrelationStore(client *Client) *CorrelationStore {
	return &CorrelationStore{rdb: client.rdb}
}

// Key helpers
func (s *CorrelationStore) indexKey() string {
	return "correlations"
}

func (s *CorrelationStore) recordKey(appID, payloadID string) string {
	return fmt.Sprintf("correlation:%s:%s", appID, payloadID)
}

func (s *CorrelationStore) member(appID, payloadID string) string {
	return appID + ":" + payloadID
}

// Put stores a correlation record. At most one live record exists per payload
// id; a second Put for the same id overwrites the first.
func (s *CorrelationStore) Put(ctx context.Context, rec *domain.CorrelationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation record: %w", err)
	}

	if err := s.rdb.Set(ctx, s.recordKey(rec.ApplicationID, rec.PayloadID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set correlation record: %w", err)
	}

	// Index by expiry so the sweep can query by score
	if err := s.rdb.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(rec.Expires.Unix()),
		Member: s.member(rec.ApplicationID, rec.PayloadID),
	}).Err(); err != nil {
		return fmt.Errorf("failed to index correlation record: %w", err)
	}

	return nil
}

// Claim atomically consumes the record for a payload id. GETDEL guarantees
// that out of any number of concurrent claims exactly one sees the record;
// the rest get (nil, nil).
func (s *CorrelationStore) Claim(
	ctx context.Context,
	appID, payloadID string,
) (*domain.CorrelationRecord, error) {
	data, err := s.rdb.GetDel(ctx, s.recordKey(appID, payloadID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim correlation record: %w", err)
	}

	// Index entry is no longer needed; removal is best effort, a stale
	// member without a value is skipped by the sweep.
	s.rdb.ZRem(ctx, s.indexKey(), s.member(appID, payloadID))

	var rec domain.CorrelationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal correlation record: %w", err)
	}

	return &rec, nil
}

// Expired returns all records whose expiry is at or before the cutoff.
func (s *CorrelationStore) Expired(
	ctx context.Context,
	cutoff time.Time,
) ([]*domain.CorrelationRecord, error) {
	members, err := s.rdb.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore failed: %w", err)
	}

	records := make([]*domain.CorrelationRecord, 0, len(members))
	for _, m := range members {
		appID, payloadID, ok := splitMember(m)
		if !ok {
			s.rdb.ZRem(ctx, s.indexKey(), m)
			continue
		}

		data, err := s.rdb.Get(ctx, s.recordKey(appID, payloadID)).Bytes()
		if err == redis.Nil {
			// Value already claimed, drop the stale index entry
			s.rdb.ZRem(ctx, s.indexKey(), m)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get correlation record: %w", err)
		}

		var rec domain.CorrelationRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// Delete removes a record and its index entry.
func (s *CorrelationStore) Delete(ctx context.Context, appID, payloadID string) error {
	if err := s.rdb.Del(ctx, s.recordKey(appID, payloadID)).Err(); err != nil {
		return fmt.Errorf("failed to delete correlation record: %w", err)
	}
	if err := s.rdb.ZRem(ctx, s.indexKey(), s.member(appID, payloadID)).Err(); err != nil {
		return fmt.Errorf("failed to remove index entry: %w", err)
	}
	return nil
}

func splitMember(m string) (appID, payloadID string, ok bool) {
	i := strings.IndexByte(m, ':')
	if i <= 0 || i == len(m)-1 {
		return "", "", false
	}
	return m[:i], m[i+1:], true
}
