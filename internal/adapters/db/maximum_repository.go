package db

import (
	"context"
	"fmt"

	"marketplace-bidding-engine/internal/domain/bidding"

	"github.com/google/uuid"
)

// MaximumRepository implements the standing maximum repository interface
type MaximumRepository struct {
	conn *Connection
}

// NewMaximumRepository creates a new standing maximum repository
func NewMaximumRepository(conn *Connection) *MaximumRepository {
	return &MaximumRepository{conn: conn}
}

// GetActiveByAuction retrieves the full active set for an auction
func (r *MaximumRepository) GetActiveByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bidding.StandingMaximum, error) {
	query := `
		SELECT id, auction_id, bidder_id, max_amount, seq, active, created_at, updated_at
		FROM standing_maximums
		WHERE auction_id = $1 AND active = TRUE
		ORDER BY max_amount DESC, seq ASC
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get standing maximums: %w", err)
	}
	defer rows.Close()

	var maximums []*bidding.StandingMaximum
	for rows.Next() {
		var m bidding.StandingMaximum
		err := rows.Scan(
			&m.ID,
			&m.AuctionID,
			&m.BidderID,
			&m.MaxAmount,
			&m.Seq,
			&m.Active,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan standing maximum: %w", err)
		}
		maximums = append(maximums, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standing maximums: %w", err)
	}

	return maximums, nil
}

// Save inserts or updates a standing maximum. The (auction, bidder)
// pair is unique; a re-submission replaces the prior row.
func (r *MaximumRepository) Save(ctx context.Context, m *bidding.StandingMaximum) error {
	query := `
		INSERT INTO standing_maximums (id, auction_id, bidder_id, max_amount, seq, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (auction_id, bidder_id)
		DO UPDATE SET max_amount = EXCLUDED.max_amount,
		              seq = EXCLUDED.seq,
		              active = EXCLUDED.active,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		m.ID,
		m.AuctionID,
		m.BidderID,
		m.MaxAmount,
		m.Seq,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save standing maximum: %w", err)
	}

	return nil
}
