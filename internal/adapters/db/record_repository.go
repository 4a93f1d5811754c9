package db

import (
	"context"
	"fmt"

	"marketplace-bidding-engine/internal/domain/bidding"

	"github.com/google/uuid"
)

// BidRecordRepository implements the bid record repository interface
type BidRecordRepository struct {
	conn *Connection
}

// NewBidRecordRepository creates a new bid record repository
func NewBidRecordRepository(conn *Connection) *BidRecordRepository {
	return &BidRecordRepository{conn: conn}
}

// Append appends a resolver-produced bid record
func (r *BidRecordRepository) Append(ctx context.Context, record *bidding.BidRecord) error {
	query := `
		INSERT INTO bid_records (id, auction_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.querier(ctx).ExecContext(ctx, query,
		record.ID,
		record.AuctionID,
		record.BidderID,
		record.Amount,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append bid record: %w", err)
	}

	return nil
}

// ListByAuction retrieves all records for an auction, newest first
func (r *BidRecordRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bidding.BidRecord, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bid_records
		WHERE auction_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid records: %w", err)
	}
	defer rows.Close()

	var records []*bidding.BidRecord
	for rows.Next() {
		var record bidding.BidRecord
		err := rows.Scan(
			&record.ID,
			&record.AuctionID,
			&record.BidderID,
			&record.Amount,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid record: %w", err)
		}
		records = append(records, &record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bid records: %w", err)
	}

	return records, nil
}
