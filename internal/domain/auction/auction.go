package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the current status of an auction
type Status string

const (
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
	StatusExpired Status = "expired"
)

// BidRequirement selects the eligibility rules applied to bidders
type BidRequirement string

const (
	// RequirementNormal lets any non-blocked bidder participate
	RequirementNormal BidRequirement = "normal"
	// RequirementQualified requires seller approval or a minimum rating
	RequirementQualified BidRequirement = "qualified"
)

// Auction is the single source of truth for one listing's bidding state.
// The (CurrentPrice, HighestBidderID, EndTime, Status) tuple is owned
// exclusively by the auction's lane while being mutated.
type Auction struct {
	ID                uuid.UUID        `json:"id"`
	ItemID            uuid.UUID        `json:"item_id"`
	SellerID          uuid.UUID        `json:"seller_id"`
	StartPrice        decimal.Decimal  `json:"start_price"`
	BidStep           decimal.Decimal  `json:"bid_step"`
	CurrentPrice      decimal.Decimal  `json:"current_price"`
	HighestBidderID   *uuid.UUID       `json:"highest_bidder_id,omitempty"`
	BuyNowPrice       *decimal.Decimal `json:"buy_now_price,omitempty"`
	StartTime         time.Time        `json:"start_time"`
	EndTime           time.Time        `json:"end_time"`
	AutoExtendEnabled bool             `json:"auto_extend_enabled"`
	BidRequirement    BidRequirement   `json:"bid_requirement"`
	Status            Status           `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsActive returns true if the auction is currently accepting operations
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsTerminal returns true once the auction is closed or expired
func (a *Auction) IsTerminal() bool {
	return a.Status == StatusClosed || a.Status == StatusExpired
}

// Started reports whether bidding has opened
func (a *Auction) Started(now time.Time) bool {
	return !a.StartTime.After(now)
}

// Ended reports whether the close time (including extensions) has passed
func (a *Auction) Ended(now time.Time) bool {
	return !a.EndTime.After(now)
}

// HasBuyNow reports whether the auction exposes a buy-now price
func (a *Auction) HasBuyNow() bool {
	return a.BuyNowPrice != nil
}

// MinimumBid is the lowest maximum a non-leading bidder may submit
func (a *Auction) MinimumBid() decimal.Decimal {
	return a.CurrentPrice.Add(a.BidStep)
}

// OnGrid reports whether price lies on the startPrice + k*bidStep grid
func (a *Auction) OnGrid(price decimal.Decimal) bool {
	if price.LessThan(a.StartPrice) {
		return false
	}
	return price.Sub(a.StartPrice).Mod(a.BidStep).IsZero()
}

// SnapToGrid rounds price down to the nearest grid point, never below
// the start price.
func (a *Auction) SnapToGrid(price decimal.Decimal) decimal.Decimal {
	if !price.GreaterThan(a.StartPrice) {
		return a.StartPrice
	}
	steps := price.Sub(a.StartPrice).Div(a.BidStep).Floor()
	return a.StartPrice.Add(steps.Mul(a.BidStep))
}

// ApplyClearing installs a freshly computed clearing state
func (a *Auction) ApplyClearing(price decimal.Decimal, leaderID *uuid.UUID, now time.Time) {
	a.CurrentPrice = price
	a.HighestBidderID = leaderID
	a.UpdatedAt = now
}

// Close marks the auction closed (buy-now or end-of-time with bids)
func (a *Auction) Close(now time.Time) {
	a.Status = StatusClosed
	a.UpdatedAt = now
}

// Expire marks the auction expired (end-of-time with no bids)
func (a *Auction) Expire(now time.Time) {
	a.Status = StatusExpired
	a.UpdatedAt = now
}

// IsLeader reports whether the given bidder currently holds the high bid
func (a *Auction) IsLeader(bidderID uuid.UUID) bool {
	return a.HighestBidderID != nil && *a.HighestBidderID == bidderID
}
