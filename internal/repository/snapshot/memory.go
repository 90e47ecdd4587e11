package snapshot

import (
	"context"
	"sync"
	"time"

	domain "github.com/oshokin/device-core/internal/domain/peripheral"
)

// Repository defines access to the peripheral snapshot.
type Repository interface {
	Load(ctx context.Context) *domain.Snapshot
	Update(ctx context.Context, mutate func(s *domain.Snapshot)) *domain.Snapshot
}

// MemoryRepository keeps the snapshot in memory. Updates are last-write-wins.
type MemoryRepository struct {
	// mu protects state.
	mu sync.RWMutex
	// state is the current snapshot.
	state domain.Snapshot
	// now stamps updates.
	now func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

// Load returns a copy of the snapshot.
func (r *MemoryRepository) Load(_ context.Context) *domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.Clone()
}

// Update applies mutate under the lock and returns a copy of the result.
func (r *MemoryRepository) Update(_ context.Context, mutate func(s *domain.Snapshot)) *domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	mutate(&r.state)
	r.state.UpdatedAt = r.now()

	return r.state.Clone()
}
