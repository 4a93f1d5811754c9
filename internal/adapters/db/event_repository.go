package db

import (
	"context"
	"fmt"

	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventRepository implements the auction timeline repository interface
type EventRepository struct {
	conn *Connection
}

// NewEventRepository creates a new event repository
func NewEventRepository(conn *Connection) *EventRepository {
	return &EventRepository{conn: conn}
}

// Append appends timeline events in order
func (r *EventRepository) Append(ctx context.Context, events []shared.AuctionEvent) error {
	query := `
		INSERT INTO auction_events (id, auction_id, kind, bidder_id, related_bidder_id, amount, max_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, e := range events {
		_, err := r.conn.querier(ctx).ExecContext(ctx, query,
			e.ID,
			e.AuctionID,
			e.Kind,
			e.BidderID,
			nullUUID(e.RelatedBidderID),
			nullDecimal(e.Amount),
			nullDecimal(e.MaxAmount),
			e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append auction event: %w", err)
		}
	}

	return nil
}

// ListByAuction retrieves the timeline for an auction, oldest first
func (r *EventRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]shared.AuctionEvent, error) {
	query := `
		SELECT id, auction_id, kind, bidder_id, related_bidder_id, amount, max_amount, created_at
		FROM auction_events
		WHERE auction_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.conn.querier(ctx).QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction events: %w", err)
	}
	defer rows.Close()

	var events []shared.AuctionEvent
	for rows.Next() {
		var e shared.AuctionEvent
		var related uuid.NullUUID
		var amount, max decimal.NullDecimal
		err := rows.Scan(
			&e.ID,
			&e.AuctionID,
			&e.Kind,
			&e.BidderID,
			&related,
			&amount,
			&max,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction event: %w", err)
		}
		if related.Valid {
			e.RelatedBidderID = &related.UUID
		}
		if amount.Valid {
			e.Amount = &amount.Decimal
		}
		if max.Valid {
			e.MaxAmount = &max.Decimal
		}
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auction events: %w", err)
	}

	return events, nil
}
