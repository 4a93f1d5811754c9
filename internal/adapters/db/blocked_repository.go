package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlockedBidderRepository implements the blocked bidder set
type BlockedBidderRepository struct {
	conn *Connection
}

// NewBlockedBidderRepository creates a new blocked bidder repository
func NewBlockedBidderRepository(conn *Connection) *BlockedBidderRepository {
	return &BlockedBidderRepository{conn: conn}
}

// IsBlocked checks membership for a (auction, bidder) pair
func (r *BlockedBidderRepository) IsBlocked(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocked_bidders
			WHERE auction_id = $1 AND bidder_id = $2
		)
	`

	var blocked bool
	err := r.conn.querier(ctx).QueryRowContext(ctx, query, auctionID, bidderID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("failed to check blocked bidder: %w", err)
	}

	return blocked, nil
}

// Block adds a bidder to the blocked set. Re-blocking is a no-op so
// the kick operation stays idempotent.
func (r *BlockedBidderRepository) Block(ctx context.Context, auctionID, bidderID uuid.UUID, reason string) error {
	query := `
		INSERT INTO blocked_bidders (auction_id, bidder_id, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (auction_id, bidder_id) DO NOTHING
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		auctionID,
		bidderID,
		reason,
		time.Now(),
	)

	if err != nil {
		return fmt.Errorf("failed to block bidder: %w", err)
	}

	return nil
}
