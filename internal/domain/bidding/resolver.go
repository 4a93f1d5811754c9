package bidding

import (
	"sort"
	"time"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Submission is a new or raised standing maximum entering the resolver.
type Submission struct {
	BidderID uuid.UUID
	Amount   decimal.Decimal
	Seq      int64
	At       time.Time
}

// Result describes the clearing state derived from one submission.
type Result struct {
	Price         decimal.Decimal
	LeaderID      *uuid.UUID
	Maximum       *StandingMaximum
	Created       bool
	Record        *BidRecord
	Events        []shared.AuctionEvent
	PriceMoved    bool
	LeaderChanged bool
}

// rankActive filters inactive maximums and orders the rest by amount
// descending, then by seq ascending so exact ties resolve to whichever
// amount was recorded first.
func rankActive(maximums []*StandingMaximum) []*StandingMaximum {
	ranked := make([]*StandingMaximum, 0, len(maximums))
	for _, m := range maximums {
		if m.Active {
			ranked = append(ranked, m)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].MaxAmount.Equal(ranked[j].MaxAmount) {
			return ranked[i].MaxAmount.GreaterThan(ranked[j].MaxAmount)
		}
		return ranked[i].Seq < ranked[j].Seq
	})
	return ranked
}

// ClearFromSet recomputes the clearing price and leader from the full
// active-maximum set. It is always a from-scratch computation, never a
// delta, which makes the final state independent of submission order.
// With no active maximums the auction sits at its start price with no
// leader. With competition the price is min(top, second + step), snapped
// down to the bid step grid and floored at the start price.
func ClearFromSet(a *auction.Auction, maximums []*StandingMaximum) (decimal.Decimal, *StandingMaximum, *StandingMaximum) {
	ranked := rankActive(maximums)
	if len(ranked) == 0 {
		return a.StartPrice, nil, nil
	}

	top := ranked[0]
	second := a.StartPrice.Sub(a.BidStep)
	var runnerUp *StandingMaximum
	if len(ranked) > 1 {
		runnerUp = ranked[1]
		second = runnerUp.MaxAmount
	}

	price := decimal.Min(top.MaxAmount, second.Add(a.BidStep))
	price = a.SnapToGrid(price)

	return price, top, runnerUp
}

// ApplySubmission validates a bidder's new ceiling, merges it into the
// active set and recomputes the clearing state of the auction. The
// auction's price/leader tuple is updated in place; the caller persists
// the returned maximum, record and events atomically.
func ApplySubmission(a *auction.Auction, actives []*StandingMaximum, sub Submission) (*Result, error) {
	var existing *StandingMaximum
	for _, m := range actives {
		if m.Active && m.BidderID == sub.BidderID {
			existing = m
			break
		}
	}

	// A maximum may only ever increase; re-submission replaces, never
	// lowers, the prior ceiling.
	if existing != nil && !sub.Amount.GreaterThan(existing.MaxAmount) {
		return nil, shared.ErrMaxNotIncreasing
	}

	// Non-leaders must clear the current price by at least one step.
	if !a.IsLeader(sub.BidderID) && sub.Amount.LessThan(a.MinimumBid()) {
		return nil, shared.ErrBidTooLow
	}

	result := &Result{}
	working := make([]*StandingMaximum, 0, len(actives)+1)
	for _, m := range actives {
		if m != existing {
			working = append(working, m)
		}
	}
	if existing != nil {
		existing.Raise(sub.Amount, sub.Seq, sub.At)
		result.Maximum = existing
	} else {
		result.Maximum = NewStandingMaximum(a.ID, sub.BidderID, sub.Amount, sub.Seq, sub.At)
		result.Created = true
	}
	working = append(working, result.Maximum)

	prevPrice := a.CurrentPrice
	prevLeader := a.HighestBidderID

	price, top, runnerUp := ClearFromSet(a, working)
	leaderID := top.BidderID

	result.Price = price
	result.LeaderID = &leaderID
	result.PriceMoved = !price.Equal(prevPrice)
	result.LeaderChanged = prevLeader == nil || *prevLeader != leaderID

	if result.Created {
		result.Events = append(result.Events,
			shared.NewAuctionEvent(a.ID, shared.EventMaxSet, sub.BidderID, sub.At).WithMax(sub.Amount))
	} else if !result.PriceMoved && !result.LeaderChanged {
		result.Events = append(result.Events,
			shared.NewAuctionEvent(a.ID, shared.EventMaxUpdated, sub.BidderID, sub.At).WithMax(sub.Amount))
	}

	// An exact tie between the top two maximums is decided by seq;
	// first-mover advantage is surfaced on the timeline.
	if runnerUp != nil && top.MaxAmount.Equal(runnerUp.MaxAmount) {
		result.Events = append(result.Events,
			shared.NewAuctionEvent(a.ID, shared.EventTieBreakWin, leaderID, sub.At).
				WithRelated(runnerUp.BidderID).WithAmount(price))
	}

	switch {
	case result.LeaderChanged:
		result.Record = newBidRecord(a.ID, leaderID, price, sub.At)
		if prevLeader != nil {
			result.Events = append(result.Events,
				shared.NewAuctionEvent(a.ID, shared.EventOutbidInstantly, *prevLeader, sub.At).
					WithRelated(leaderID).WithAmount(price))
		}
		result.Events = append(result.Events,
			shared.NewAuctionEvent(a.ID, shared.EventWinning, leaderID, sub.At).WithAmount(price))

	case result.PriceMoved:
		// The standing leader's proxy bid up to cover the challenger.
		result.Record = newBidRecord(a.ID, leaderID, price, sub.At)
		proxy := shared.NewAuctionEvent(a.ID, shared.EventProxyBid, leaderID, sub.At).WithAmount(price)
		if sub.BidderID != leaderID {
			proxy = proxy.WithRelated(sub.BidderID)
		}
		result.Events = append(result.Events, proxy)
	}

	// The submitter walked straight into a higher standing maximum.
	if sub.BidderID != leaderID {
		result.Events = append(result.Events,
			shared.NewAuctionEvent(a.ID, shared.EventOutbidInstantly, sub.BidderID, sub.At).
				WithRelated(leaderID).WithAmount(price))
	}

	a.ApplyClearing(price, &leaderID, sub.At)

	return result, nil
}

// ApplyBuyNow short-circuits the increment algorithm: the buyer takes
// the auction at the buy-now price and the auction closes immediately,
// ignoring all standing maximums.
func ApplyBuyNow(a *auction.Auction, bidderID uuid.UUID, now time.Time) (*Result, error) {
	if !a.HasBuyNow() {
		return nil, shared.ErrBuyNowUnavailable
	}

	price := *a.BuyNowPrice
	prevLeader := a.HighestBidderID

	result := &Result{
		Price:         price,
		LeaderID:      &bidderID,
		Record:        newBidRecord(a.ID, bidderID, price, now),
		PriceMoved:    !price.Equal(a.CurrentPrice),
		LeaderChanged: prevLeader == nil || *prevLeader != bidderID,
	}

	if prevLeader != nil && *prevLeader != bidderID {
		result.Events = append(result.Events,
			shared.NewAuctionEvent(a.ID, shared.EventOutbidInstantly, *prevLeader, now).
				WithRelated(bidderID).WithAmount(price))
	}
	result.Events = append(result.Events,
		shared.NewAuctionEvent(a.ID, shared.EventWinning, bidderID, now).WithAmount(price))

	a.ApplyClearing(price, &bidderID, now)
	a.Close(now)

	return result, nil
}
