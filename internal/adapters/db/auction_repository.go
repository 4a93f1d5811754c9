package db

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (
			id, item_id, seller_id, start_price, bid_step, current_price,
			highest_bidder_id, buy_now_price, start_time, end_time,
			auto_extend_enabled, bid_requirement, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		a.ID,
		a.ItemID,
		a.SellerID,
		a.StartPrice,
		a.BidStep,
		a.CurrentPrice,
		nullUUID(a.HighestBidderID),
		nullDecimal(a.BuyNowPrice),
		a.StartTime,
		a.EndTime,
		a.AutoExtendEnabled,
		a.BidRequirement,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `
		SELECT id, item_id, seller_id, start_price, bid_step, current_price,
		       highest_bidder_id, buy_now_price, start_time, end_time,
		       auto_extend_enabled, bid_requirement, status, created_at, updated_at
		FROM auctions
		WHERE id = $1
	`

	var a auction.Auction
	var leader uuid.NullUUID
	var buyNow decimal.NullDecimal
	err := r.conn.querier(ctx).QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.ItemID,
		&a.SellerID,
		&a.StartPrice,
		&a.BidStep,
		&a.CurrentPrice,
		&leader,
		&buyNow,
		&a.StartTime,
		&a.EndTime,
		&a.AutoExtendEnabled,
		&a.BidRequirement,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	if leader.Valid {
		a.HighestBidderID = &leader.UUID
	}
	if buyNow.Valid {
		a.BuyNowPrice = &buyNow.Decimal
	}

	return &a, nil
}

// Update persists the auction's mutable state tuple
func (r *AuctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET current_price = $2, highest_bidder_id = $3, end_time = $4,
		    status = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.conn.querier(ctx).ExecContext(ctx, query,
		a.ID,
		a.CurrentPrice,
		nullUUID(a.HighestBidderID),
		a.EndTime,
		a.Status,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}

	return nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
