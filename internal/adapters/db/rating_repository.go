package db

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// RatingRepository implements the rating provider backed by the
// identity store's vote counters.
type RatingRepository struct {
	conn *Connection
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(conn *Connection) *RatingRepository {
	return &RatingRepository{conn: conn}
}

// GetRating returns the bidder's current rating summary. A bidder with
// no history yields a zero summary, not an error.
func (r *RatingRepository) GetRating(ctx context.Context, bidderID uuid.UUID) (shared.RatingSummary, error) {
	query := `
		SELECT bidder_id, positive_votes, total_votes, role
		FROM bidder_ratings
		WHERE bidder_id = $1
	`

	var summary shared.RatingSummary
	err := r.conn.querier(ctx).QueryRowContext(ctx, query, bidderID).Scan(
		&summary.BidderID,
		&summary.PositiveVotes,
		&summary.TotalVotes,
		&summary.Role,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return shared.RatingSummary{BidderID: bidderID}, nil
		}
		return shared.RatingSummary{}, fmt.Errorf("failed to get bidder rating: %w", err)
	}

	return summary, nil
}
