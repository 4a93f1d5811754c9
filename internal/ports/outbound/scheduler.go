package outbound

import (
	"time"

	"github.com/google/uuid"
)

// CloseScheduler tracks when auctions become due for the close sweep.
type CloseScheduler interface {
	// Schedule records or replaces the close timestamp for an auction
	Schedule(auctionID uuid.UUID, endTime time.Time) error

	// Cancel drops an auction from the schedule
	Cancel(auctionID uuid.UUID) error
}
