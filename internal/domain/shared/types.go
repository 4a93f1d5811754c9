package shared

import "github.com/google/uuid"

// RatingSummary is a bidder's rating snapshot supplied by the identity
// collaborator at evaluation time.
type RatingSummary struct {
	BidderID      uuid.UUID
	PositiveVotes int
	TotalVotes    int
	Role          string
}

// HasVotes reports whether the bidder has any rating history.
func (r RatingSummary) HasVotes() bool {
	return r.TotalVotes > 0
}

// PositiveRate returns the percentage of positive votes.
func (r RatingSummary) PositiveRate() float64 {
	if r.TotalVotes == 0 {
		return 0
	}
	return float64(r.PositiveVotes) / float64(r.TotalVotes) * 100
}
