package bidding

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StandingMaximum is a bidder's proxy ceiling on one auction. At most
// one active maximum exists per (auction, bidder); the amount only ever
// increases. Seq records when the current amount was set and is the
// tie-break key when two maximums are exactly equal.
type StandingMaximum struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	Seq       int64           `json:"seq"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewStandingMaximum records a bidder's first ceiling on an auction.
func NewStandingMaximum(auctionID, bidderID uuid.UUID, amount decimal.Decimal, seq int64, now time.Time) *StandingMaximum {
	return &StandingMaximum{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		MaxAmount: amount,
		Seq:       seq,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Raise replaces the ceiling with a strictly higher amount. The seq is
// reassigned: a raise counts as a new recording, so an older standing
// value at the same amount beats a later raise to that amount.
func (m *StandingMaximum) Raise(amount decimal.Decimal, seq int64, now time.Time) {
	m.MaxAmount = amount
	m.Seq = seq
	m.UpdatedAt = now
}

// Deactivate takes the maximum out of play while retaining it for audit.
func (m *StandingMaximum) Deactivate(now time.Time) {
	m.Active = false
	m.UpdatedAt = now
}
