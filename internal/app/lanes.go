package app

import (
	"context"
	"sync"
	"time"

	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// laneRegistry maps each auction id to a single logical execution lane.
// Bids for different auctions run fully in parallel; two operations on
// the same auction are strictly ordered by lane admission. A lane is a
// capacity-one channel so blocked acquirers queue in FIFO order.
type laneRegistry struct {
	mu    sync.Mutex
	lanes map[uuid.UUID]chan struct{}
	wait  time.Duration
}

func newLaneRegistry(wait time.Duration) *laneRegistry {
	return &laneRegistry{
		lanes: make(map[uuid.UUID]chan struct{}),
		wait:  wait,
	}
}

func (r *laneRegistry) lane(auctionID uuid.UUID) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lanes[auctionID]
	if !ok {
		l = make(chan struct{}, 1)
		r.lanes[auctionID] = l
	}
	return l
}

// acquire admits the caller to the auction's lane, waiting at most the
// configured bound. A timed-out acquisition fails with the retryable
// shared.ErrLaneBusy rather than blocking the pool indefinitely.
func (r *laneRegistry) acquire(ctx context.Context, auctionID uuid.UUID) (func(), error) {
	l := r.lane(auctionID)

	timer := time.NewTimer(r.wait)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-timer.C:
		return nil, shared.ErrLaneBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
