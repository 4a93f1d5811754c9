package shared

import "errors"

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrAuctionClosed     = errors.New("auction is closed")
	ErrAuctionNotStarted = errors.New("auction not started")
	ErrNotSeller         = errors.New("operation restricted to the auction seller")

	// Bid validation errors (caller's fault, never retried)
	ErrBidTooLow         = errors.New("maximum must be at least current price plus one bid step")
	ErrMaxNotIncreasing  = errors.New("maximum must be strictly greater than the previous maximum")
	ErrBuyNowUnavailable = errors.New("auction has no buy-now price")

	// Contention errors (transient, safe to retry)
	ErrLaneBusy = errors.New("auction is busy, retry")

	// Consistency errors (invariant violations, treated as fatal)
	ErrPriceOffGrid         = errors.New("clearing price is off the bid step grid")
	ErrLeaderWithoutMaximum = errors.New("highest bidder holds no active standing maximum")

	// Bid request errors
	ErrBidRequestNotFound  = errors.New("bid request not found")
	ErrBidRequestFinalized = errors.New("bid request already approved or rejected")

	// Eligibility errors
	ErrNotEligible = errors.New("bidder is not eligible to bid")

	// Gateway message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrBidderIDRequired    = errors.New("bidder_id is required")
	ErrInvalidAmount       = errors.New("valid max_amount is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
)

// EligibilityError carries the specific reason a bidder was turned away.
// It unwraps to ErrNotEligible so callers can match the whole class.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return "bidder is not eligible to bid: " + e.Reason
}

func (e *EligibilityError) Unwrap() error {
	return ErrNotEligible
}

// NewEligibilityError creates an eligibility rejection with a bidder-visible reason.
func NewEligibilityError(reason string) error {
	return &EligibilityError{Reason: reason}
}
