package db

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-bidding-engine/internal/domain/eligibility"
	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// BidRequestRepository implements the bid request repository interface
type BidRequestRepository struct {
	conn *Connection
}

// NewBidRequestRepository creates a new bid request repository
func NewBidRequestRepository(conn *Connection) *BidRequestRepository {
	return &BidRequestRepository{conn: conn}
}

// Get retrieves the request for a (auction, bidder) pair
func (r *BidRequestRepository) Get(ctx context.Context, auctionID, bidderID uuid.UUID) (*eligibility.BidRequest, error) {
	query := `
		SELECT id, auction_id, bidder_id, status, created_at, updated_at
		FROM bid_requests
		WHERE auction_id = $1 AND bidder_id = $2
	`

	var req eligibility.BidRequest
	err := r.conn.querier(ctx).QueryRowContext(ctx, query, auctionID, bidderID).Scan(
		&req.ID,
		&req.AuctionID,
		&req.BidderID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrBidRequestNotFound
		}
		return nil, fmt.Errorf("failed to get bid request: %w", err)
	}

	return &req, nil
}

// Create creates a new pending request. The (auction, bidder) pair is
// unique: a request is opened at most once per bidder per auction.
func (r *BidRequestRepository) Create(ctx context.Context, req *eligibility.BidRequest) error {
	query := `
		INSERT INTO bid_requests (id, auction_id, bidder_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		req.ID,
		req.AuctionID,
		req.BidderID,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create bid request: %w", err)
	}

	return nil
}

// Update persists a request transition
func (r *BidRequestRepository) Update(ctx context.Context, req *eligibility.BidRequest) error {
	query := `
		UPDATE bid_requests
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.conn.querier(ctx).ExecContext(ctx, query,
		req.ID,
		req.Status,
		req.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update bid request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrBidRequestNotFound
	}

	return nil
}
