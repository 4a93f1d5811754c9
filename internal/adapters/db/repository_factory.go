package db

import (
	"marketplace-bidding-engine/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetMaximumRepository returns the standing maximum repository
func (f *RepositoryFactory) GetMaximumRepository() outbound.MaximumRepository {
	return NewMaximumRepository(f.conn)
}

// GetBidRecordRepository returns the bid record repository
func (f *RepositoryFactory) GetBidRecordRepository() outbound.BidRecordRepository {
	return NewBidRecordRepository(f.conn)
}

// GetBidRequestRepository returns the bid request repository
func (f *RepositoryFactory) GetBidRequestRepository() outbound.BidRequestRepository {
	return NewBidRequestRepository(f.conn)
}

// GetBlockedBidderRepository returns the blocked bidder repository
func (f *RepositoryFactory) GetBlockedBidderRepository() outbound.BlockedBidderRepository {
	return NewBlockedBidderRepository(f.conn)
}

// GetEventRepository returns the auction event repository
func (f *RepositoryFactory) GetEventRepository() outbound.EventRepository {
	return NewEventRepository(f.conn)
}

// GetRatingProvider returns the rating provider
func (f *RepositoryFactory) GetRatingProvider() outbound.RatingProvider {
	return NewRatingRepository(f.conn)
}
