package outbound

import (
	"context"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/bidding"
	"marketplace-bidding-engine/internal/domain/eligibility"
	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// TransactionManager runs fn atomically. Repository calls made with the
// context passed to fn write within that transaction; the engine wraps
// every lane-held mutation in exactly one of these.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, a *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// Update persists the auction's mutable state tuple
	Update(ctx context.Context, a *auction.Auction) error
}

// MaximumRepository defines the interface for standing maximum operations
type MaximumRepository interface {
	// GetActiveByAuction retrieves the full active set for an auction,
	// ordered by amount descending then seq ascending
	GetActiveByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bidding.StandingMaximum, error)

	// Save inserts or updates a standing maximum
	Save(ctx context.Context, m *bidding.StandingMaximum) error
}

// BidRecordRepository appends to the immutable bid log
type BidRecordRepository interface {
	// Append appends a resolver-produced bid record
	Append(ctx context.Context, r *bidding.BidRecord) error

	// ListByAuction retrieves all records for an auction, newest first
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bidding.BidRecord, error)
}

// BidRequestRepository defines the interface for bid request operations
type BidRequestRepository interface {
	// Get retrieves the request for a (auction, bidder) pair;
	// shared.ErrBidRequestNotFound when none exists
	Get(ctx context.Context, auctionID, bidderID uuid.UUID) (*eligibility.BidRequest, error)

	// Create creates a new pending request
	Create(ctx context.Context, r *eligibility.BidRequest) error

	// Update persists a request transition
	Update(ctx context.Context, r *eligibility.BidRequest) error
}

// BlockedBidderRepository tracks seller-removed bidders per auction
type BlockedBidderRepository interface {
	// IsBlocked checks membership for a (auction, bidder) pair
	IsBlocked(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error)

	// Block adds a bidder to the blocked set; inserting an existing
	// member is a no-op
	Block(ctx context.Context, auctionID, bidderID uuid.UUID, reason string) error
}

// EventRepository appends to the auction timeline
type EventRepository interface {
	// Append appends timeline events in order
	Append(ctx context.Context, events []shared.AuctionEvent) error

	// ListByAuction retrieves the timeline for an auction, oldest first
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]shared.AuctionEvent, error)
}

// RatingProvider supplies a bidder's rating snapshot on demand
type RatingProvider interface {
	// GetRating returns the bidder's current rating summary; a bidder
	// with no history yields a zero summary, not an error
	GetRating(ctx context.Context, bidderID uuid.UUID) (shared.RatingSummary, error)
}
