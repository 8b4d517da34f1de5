package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nixer89/vanity-search-backend/internal/core/config"
	"github.com/nixer89/vanity-search-backend/internal/core/domain"
)

type fakeSweepStore struct {
	mu      sync.Mutex
	expired []*domain.CorrelationRecord
	listErr error
	delErr  map[string]error
	deleted []string
}

func (f *fakeSweepStore) Expired(ctx context.Context, cutoff time.Time) ([]*domain.CorrelationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.expired, nil
}

func (f *fakeSweepStore) Delete(ctx context.Context, appID, payloadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.delErr[payloadID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, payloadID)
	return nil
}

func TestSweepDeletesExpired(t *testing.T) {
	store := &fakeSweepStore{
		expired: []*domain.CorrelationRecord{
			{ApplicationID: "app-1", PayloadID: "p-1"},
			{ApplicationID: "app-1", PayloadID: "p-2"},
		},
	}
	s := NewSweeper(config.SweepConfig{Interval: time.Hour, Grace: time.Hour}, store)

	s.sweep(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %v", store.deleted)
	}
}

func TestSweepContinuesPastDeleteFailure(t *testing.T) {
	store := &fakeSweepStore{
		expired: []*domain.CorrelationRecord{
			{ApplicationID: "app-1", PayloadID: "p-1"},
			{ApplicationID: "app-1", PayloadID: "p-2"},
		},
		delErr: map[string]error{"p-1": errors.New("connection reset")},
	}
	s := NewSweeper(config.SweepConfig{Interval: time.Hour, Grace: time.Hour}, store)

	s.sweep(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deleted) != 1 || store.deleted[0] != "p-2" {
		t.Fatalf("expected the remaining record to be deleted, got %v", store.deleted)
	}
}

func TestSweepListFailureIsNoOp(t *testing.T) {
	store := &fakeSweepStore{listErr: errors.New("redis down")}
	s := NewSweeper(config.SweepConfig{Interval: time.Hour, Grace: time.Hour}, store)

	s.sweep(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deleted) != 0 {
		t.Fatal("listing failure must not delete anything")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	store := &fakeSweepStore{}
	s := NewSweeper(config.SweepConfig{Interval: 10 * time.Millisecond, Grace: time.Hour}, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
