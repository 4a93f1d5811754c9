package eligibility

import (
	"time"

	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// RequestStatus represents the status of a qualified-auction bid request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// BidRequest is the seller pre-approval workflow for qualified auctions.
// Created exactly once per (auction, bidder) the first time evaluation
// needs approval; approved/rejected are terminal, and a rejected request
// permanently blocks that bidder on that auction. There is no re-request
// path after rejection.
type BidRequest struct {
	ID        uuid.UUID     `json:"id"`
	AuctionID uuid.UUID     `json:"auction_id"`
	BidderID  uuid.UUID     `json:"bidder_id"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewBidRequest opens a pending request for a bidder on an auction.
func NewBidRequest(auctionID, bidderID uuid.UUID, now time.Time) *BidRequest {
	return &BidRequest{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Status:    RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPending reports whether the seller still has to decide.
func (r *BidRequest) IsPending() bool {
	return r.Status == RequestPending
}

// Approve grants the bidder access. Only a pending request can move.
func (r *BidRequest) Approve(now time.Time) error {
	if !r.IsPending() {
		return shared.ErrBidRequestFinalized
	}
	r.Status = RequestApproved
	r.UpdatedAt = now
	return nil
}

// Reject turns the bidder away for good on this auction.
func (r *BidRequest) Reject(now time.Time) error {
	if !r.IsPending() {
		return shared.ErrBidRequestFinalized
	}
	r.Status = RequestRejected
	r.UpdatedAt = now
	return nil
}
