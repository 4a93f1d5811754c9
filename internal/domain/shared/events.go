package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind tags an auction timeline entry
type EventKind string

const (
	EventProxyBid        EventKind = "proxy_bid"
	EventMaxSet          EventKind = "max_set"
	EventMaxUpdated      EventKind = "max_updated"
	EventOutbidInstantly EventKind = "outbid_instantly"
	EventTieBreakWin     EventKind = "tie_break_win"
	EventWinning         EventKind = "winning"
)

// AuctionEvent is an append-only timeline entry for display and audit.
// Events flow strictly one way (state to event); the resolver never
// reads them back when deciding the next clearing state.
type AuctionEvent struct {
	ID              uuid.UUID        `json:"id"`
	AuctionID       uuid.UUID        `json:"auction_id"`
	Kind            EventKind        `json:"kind"`
	BidderID        uuid.UUID        `json:"bidder_id"`
	RelatedBidderID *uuid.UUID       `json:"related_bidder_id,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// NewAuctionEvent creates a timeline entry for the given bidder.
func NewAuctionEvent(auctionID uuid.UUID, kind EventKind, bidderID uuid.UUID, at time.Time) AuctionEvent {
	return AuctionEvent{
		ID:        uuid.New(),
		AuctionID: auctionID,
		Kind:      kind,
		BidderID:  bidderID,
		CreatedAt: at,
	}
}

// WithAmount attaches the clearing amount the event was recorded at.
func (e AuctionEvent) WithAmount(amount decimal.Decimal) AuctionEvent {
	e.Amount = &amount
	return e
}

// WithMax attaches the standing maximum the event refers to.
func (e AuctionEvent) WithMax(max decimal.Decimal) AuctionEvent {
	e.MaxAmount = &max
	return e
}

// WithRelated attaches the party who caused the event.
func (e AuctionEvent) WithRelated(bidderID uuid.UUID) AuctionEvent {
	e.RelatedBidderID = &bidderID
	return e
}
