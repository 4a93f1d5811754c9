package inbound

import (
	"context"
	"time"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/bidding"
	"marketplace-bidding-engine/internal/domain/eligibility"
	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BiddingEngine defines the mutating and read-only operations exposed
// to transport and scheduling collaborators. All mutating operations on
// one auction are serialized behind that auction's lane.
type BiddingEngine interface {
	// SubmitMaximum places or raises a bidder's proxy ceiling
	SubmitMaximum(ctx context.Context, req SubmitMaximumRequest) (*BidOutcome, error)

	// BuyNow takes the auction at its buy-now price and closes it
	BuyNow(ctx context.Context, req BuyNowRequest) (*BidOutcome, error)

	// KickBidder removes a bidder and re-derives the auction state
	KickBidder(ctx context.Context, req KickBidderRequest) (*KickOutcome, error)

	// AttemptClose closes the auction if its end time has passed
	AttemptClose(ctx context.Context, auctionID uuid.UUID, now time.Time) (*CloseOutcome, error)

	// EvaluateEligibility is the read-only gate check used to render
	// the bid panel
	EvaluateEligibility(ctx context.Context, auctionID, bidderID uuid.UUID) (eligibility.Decision, error)

	// ApproveBidRequest grants a pending qualified-auction request
	ApproveBidRequest(ctx context.Context, req DecideRequestRequest) error

	// RejectBidRequest refuses a pending qualified-auction request
	RejectBidRequest(ctx context.Context, req DecideRequestRequest) error

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// ListTimeline retrieves the auction's event timeline, oldest first
	ListTimeline(ctx context.Context, auctionID uuid.UUID) ([]shared.AuctionEvent, error)

	// ListBidRecords retrieves the immutable bid log, newest first
	ListBidRecords(ctx context.Context, auctionID uuid.UUID) ([]*bidding.BidRecord, error)
}

// request to place or raise a standing maximum
type SubmitMaximumRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

// request to buy the item outright
type BuyNowRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
}

// request to remove a bidder from an auction
type KickBidderRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Reason    string    `json:"reason"`
}

// request to decide a pending bid request
type DecideRequestRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
}

// BidOutcome is the authoritative state after an accepted submission.
type BidOutcome struct {
	AuctionID       uuid.UUID             `json:"auction_id"`
	CurrentPrice    decimal.Decimal       `json:"current_price"`
	HighestBidderID *uuid.UUID            `json:"highest_bidder_id,omitempty"`
	EndTime         time.Time             `json:"end_time"`
	Extended        bool                  `json:"extended"`
	Status          auction.Status        `json:"status"`
	Events          []shared.AuctionEvent `json:"events"`
}

// KickOutcome is the re-derived state after a bidder removal.
type KickOutcome struct {
	AuctionID       uuid.UUID       `json:"auction_id"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	HighestBidderID *uuid.UUID      `json:"highest_bidder_id,omitempty"`
	Recalculated    bool            `json:"recalculated"`
}

// CloseOutcome reports the auction's status after a close attempt.
type CloseOutcome struct {
	AuctionID       uuid.UUID        `json:"auction_id"`
	Status          auction.Status   `json:"status"`
	WinnerID        *uuid.UUID       `json:"winner_id,omitempty"`
	FinalPrice      *decimal.Decimal `json:"final_price,omitempty"`
	EndTime         time.Time        `json:"end_time"`
}
