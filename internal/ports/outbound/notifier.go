package outbound

import (
	"context"

	"github.com/google/uuid"
)

// NoticeType represents the type of notice being published
type NoticeType string

const (
	NoticeBidAccepted       NoticeType = "bid.accepted"
	NoticeAuctionExtended   NoticeType = "auction.extended"
	NoticeAuctionClosed     NoticeType = "auction.closed"
	NoticeBidderKicked      NoticeType = "bidder.kicked"
	NoticeApprovalRequested NoticeType = "approval.requested"
	NoticeRequestDecided    NoticeType = "request.decided"
)

// Notice is a published notification. The engine hands these off after
// the state transition is committed and never waits on delivery.
type Notice struct {
	Type      NoticeType             `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Notifier defines the interface for publishing notices to downstream
// consumers (email dispatch, live watchers)
type Notifier interface {
	// Publish publishes a notice to all subscribers of an auction
	Publish(ctx context.Context, auctionID uuid.UUID, notice Notice) error
}
