package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/bidding"
	"marketplace-bidding-engine/internal/domain/eligibility"
	"marketplace-bidding-engine/internal/domain/shared"
	"marketplace-bidding-engine/internal/ports/outbound"

	"github.com/google/uuid"
)

// fakeStore is the shared in-memory world behind all outbound port
// fakes; each port is a thin view over it so tests see one consistent
// state.
type fakeStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*auction.Auction
	maximums map[uuid.UUID]map[uuid.UUID]*bidding.StandingMaximum
	records  []*bidding.BidRecord
	requests map[string]*eligibility.BidRequest
	blocked  map[string]bool
	events   []shared.AuctionEvent
	ratings  map[uuid.UUID]shared.RatingSummary
	schedule map[uuid.UUID]time.Time
	notices  []outbound.Notice
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auctions: make(map[uuid.UUID]*auction.Auction),
		maximums: make(map[uuid.UUID]map[uuid.UUID]*bidding.StandingMaximum),
		requests: make(map[string]*eligibility.BidRequest),
		blocked:  make(map[string]bool),
		ratings:  make(map[uuid.UUID]shared.RatingSummary),
		schedule: make(map[uuid.UUID]time.Time),
	}
}

func pairKey(auctionID, bidderID uuid.UUID) string {
	return auctionID.String() + "|" + bidderID.String()
}

func copyAuction(a *auction.Auction) *auction.Auction {
	c := *a
	if a.HighestBidderID != nil {
		id := *a.HighestBidderID
		c.HighestBidderID = &id
	}
	if a.BuyNowPrice != nil {
		p := *a.BuyNowPrice
		c.BuyNowPrice = &p
	}
	return &c
}

func (s *fakeStore) putAuction(a *auction.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = copyAuction(a)
}

func (s *fakeStore) auctionByID(id uuid.UUID) *auction.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAuction(s.auctions[id])
}

func (s *fakeStore) putRating(r shared.RatingSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[r.BidderID] = r
}

func (s *fakeStore) requestFor(auctionID, bidderID uuid.UUID) *eligibility.BidRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[pairKey(auctionID, bidderID)]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

func (s *fakeStore) noticeCount(noticeType outbound.NoticeType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notices {
		if n.Type == noticeType {
			count++
		}
	}
	return count
}

func (s *fakeStore) scheduledAt(auctionID uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.schedule[auctionID]
	return at, ok
}

// TransactionManager

type fakeTx struct{ *fakeStore }

func (f fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// AuctionRepository

type fakeAuctions struct{ *fakeStore }

func (f fakeAuctions) Create(ctx context.Context, a *auction.Auction) error {
	f.putAuction(a)
	return nil
}

func (f fakeAuctions) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return copyAuction(a), nil
}

func (f fakeAuctions) Update(ctx context.Context, a *auction.Auction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.auctions[a.ID]; !ok {
		return shared.ErrAuctionNotFound
	}
	f.auctions[a.ID] = copyAuction(a)
	return nil
}

// MaximumRepository

type fakeMaximums struct{ *fakeStore }

func (f fakeMaximums) GetActiveByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bidding.StandingMaximum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var actives []*bidding.StandingMaximum
	for _, m := range f.maximums[auctionID] {
		if m.Active {
			c := *m
			actives = append(actives, &c)
		}
	}
	sort.Slice(actives, func(i, j int) bool {
		if !actives[i].MaxAmount.Equal(actives[j].MaxAmount) {
			return actives[i].MaxAmount.GreaterThan(actives[j].MaxAmount)
		}
		return actives[i].Seq < actives[j].Seq
	})
	return actives, nil
}

func (f fakeMaximums) Save(ctx context.Context, m *bidding.StandingMaximum) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	byBidder, ok := f.maximums[m.AuctionID]
	if !ok {
		byBidder = make(map[uuid.UUID]*bidding.StandingMaximum)
		f.maximums[m.AuctionID] = byBidder
	}
	c := *m
	byBidder[m.BidderID] = &c
	return nil
}

// BidRecordRepository

type fakeRecords struct{ *fakeStore }

func (f fakeRecords) Append(ctx context.Context, r *bidding.BidRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *r
	f.records = append(f.records, &c)
	return nil
}

func (f fakeRecords) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bidding.BidRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*bidding.BidRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].AuctionID == auctionID {
			c := *f.records[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// BidRequestRepository

type fakeRequests struct{ *fakeStore }

func (f fakeRequests) Get(ctx context.Context, auctionID, bidderID uuid.UUID) (*eligibility.BidRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[pairKey(auctionID, bidderID)]
	if !ok {
		return nil, shared.ErrBidRequestNotFound
	}
	c := *r
	return &c, nil
}

func (f fakeRequests) Create(ctx context.Context, r *eligibility.BidRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *r
	f.requests[pairKey(r.AuctionID, r.BidderID)] = &c
	return nil
}

func (f fakeRequests) Update(ctx context.Context, r *eligibility.BidRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[pairKey(r.AuctionID, r.BidderID)]; !ok {
		return shared.ErrBidRequestNotFound
	}
	c := *r
	f.requests[pairKey(r.AuctionID, r.BidderID)] = &c
	return nil
}

// BlockedBidderRepository

type fakeBlocked struct{ *fakeStore }

func (f fakeBlocked) IsBlocked(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[pairKey(auctionID, bidderID)], nil
}

func (f fakeBlocked) Block(ctx context.Context, auctionID, bidderID uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[pairKey(auctionID, bidderID)] = true
	return nil
}

// EventRepository

type fakeEvents struct{ *fakeStore }

func (f fakeEvents) Append(ctx context.Context, events []shared.AuctionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f fakeEvents) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]shared.AuctionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []shared.AuctionEvent
	for _, ev := range f.events {
		if ev.AuctionID == auctionID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// RatingProvider

type fakeRatings struct{ *fakeStore }

func (f fakeRatings) GetRating(ctx context.Context, bidderID uuid.UUID) (shared.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ratings[bidderID]
	if !ok {
		return shared.RatingSummary{BidderID: bidderID}, nil
	}
	return r, nil
}

// Notifier

type fakeNotifier struct{ *fakeStore }

func (f fakeNotifier) Publish(ctx context.Context, auctionID uuid.UUID, notice outbound.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
	return nil
}

// CloseScheduler

type fakeScheduler struct{ *fakeStore }

func (f fakeScheduler) Schedule(auctionID uuid.UUID, endTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedule[auctionID] = endTime
	return nil
}

func (f fakeScheduler) Cancel(auctionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.schedule, auctionID)
	return nil
}
