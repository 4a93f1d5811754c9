package bidding

import (
	"time"

	"marketplace-bidding-engine/internal/domain/auction"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KickResult describes the auction state after a bidder's removal.
type KickResult struct {
	Deactivated *StandingMaximum
	Changed     bool
	Price       decimal.Decimal
	LeaderID    *uuid.UUID
}

// RecalculateAfterKick invalidates a removed bidder's standing maximum
// and re-derives the auction state from the remaining participants.
// When the removed bidder led the auction, the clearing algorithm runs
// from scratch over the remaining active set, as if the removed maximum
// had never existed; with nothing left the auction reverts to its start
// price with no leader. Removing a non-leader leaves the price and
// leader untouched. Re-kicking an already removed bidder is a no-op.
func RecalculateAfterKick(a *auction.Auction, actives []*StandingMaximum, bidderID uuid.UUID, now time.Time) *KickResult {
	result := &KickResult{
		Price:    a.CurrentPrice,
		LeaderID: a.HighestBidderID,
	}

	var kicked *StandingMaximum
	remaining := make([]*StandingMaximum, 0, len(actives))
	for _, m := range actives {
		if m.Active && m.BidderID == bidderID {
			kicked = m
			continue
		}
		remaining = append(remaining, m)
	}
	if kicked == nil {
		return result
	}

	kicked.Deactivate(now)
	result.Deactivated = kicked

	if !a.IsLeader(bidderID) {
		return result
	}

	price, top, _ := ClearFromSet(a, remaining)
	var leaderID *uuid.UUID
	if top != nil {
		id := top.BidderID
		leaderID = &id
	}
	a.ApplyClearing(price, leaderID, now)

	result.Changed = true
	result.Price = price
	result.LeaderID = leaderID
	return result
}
