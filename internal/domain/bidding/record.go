package bidding

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidRecord is an immutable append-only log entry. Records are produced
// only by the resolver when the clearing price or leader moves; clients
// never write them directly.
type BidRecord struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func newBidRecord(auctionID, bidderID uuid.UUID, amount decimal.Decimal, at time.Time) *BidRecord {
	return &BidRecord{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: at,
	}
}
