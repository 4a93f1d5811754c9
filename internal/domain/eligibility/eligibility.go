package eligibility

import (
	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/shared"
)

// Verdict is the outcome of an eligibility evaluation
type Verdict string

const (
	VerdictAllowed         Verdict = "allowed"
	VerdictBlocked         Verdict = "blocked"
	VerdictPendingApproval Verdict = "pending_approval"
	VerdictNeedsApproval   Verdict = "needs_approval"
)

// Decision is the evaluator's answer for one (auction, bidder) pair.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// Allowed reports whether the bidder may place a bid right now.
func (d Decision) Allowed() bool {
	return d.Verdict == VerdictAllowed
}

// Input is the snapshot the evaluator decides on. Ratings and requests
// can change between attempts, so a fresh snapshot is taken every time.
type Input struct {
	Requirement auction.BidRequirement
	Blocked     bool
	Request     *BidRequest
	Rating      shared.RatingSummary
}

// minPositiveRate is the rating floor for qualified auctions; exactly
// this rate is still allowed.
const minPositiveRate = 80.0

// Evaluate decides whether a bidder may currently bid on an auction.
// It is pure and side-effect free. A blocked bidder is turned away
// before any other rule fires. Normal auctions admit everyone else.
// Qualified auctions consult the bid request first, then fall back to
// the bidder's rating history.
func Evaluate(in Input) Decision {
	if in.Blocked {
		return Decision{Verdict: VerdictBlocked, Reason: "removed by seller"}
	}

	if in.Requirement != auction.RequirementQualified {
		return Decision{Verdict: VerdictAllowed}
	}

	if in.Request != nil {
		switch in.Request.Status {
		case RequestApproved:
			return Decision{Verdict: VerdictAllowed}
		case RequestPending:
			return Decision{Verdict: VerdictPendingApproval, Reason: "awaiting seller approval"}
		case RequestRejected:
			return Decision{Verdict: VerdictBlocked, Reason: "seller rejected"}
		}
	}

	if !in.Rating.HasVotes() {
		return Decision{Verdict: VerdictNeedsApproval, Reason: "no rating yet"}
	}
	if in.Rating.PositiveRate() < minPositiveRate {
		return Decision{Verdict: VerdictBlocked, Reason: "rating below 80%"}
	}
	return Decision{Verdict: VerdictAllowed}
}
