package app

import (
	"context"
	"testing"
	"time"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/shared"
	"marketplace-bidding-engine/internal/ports/inbound"
	"marketplace-bidding-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestEngine(store *fakeStore, now time.Time, laneWait time.Duration) *Engine {
	return NewEngine(EngineParams{
		Auctions:  fakeAuctions{store},
		Maximums:  fakeMaximums{store},
		Records:   fakeRecords{store},
		Requests:  fakeRequests{store},
		Blocked:   fakeBlocked{store},
		Events:    fakeEvents{store},
		Ratings:   fakeRatings{store},
		Notifier:  fakeNotifier{store},
		Scheduler: fakeScheduler{store},
		Tx:        fakeTx{store},
		LaneWait:  laneWait,
		AutoExtend: auction.AutoExtendPolicy{
			Threshold: 5 * time.Minute,
			Duration:  10 * time.Minute,
		},
		Clock:  func() time.Time { return now },
		Logger: zerolog.Nop(),
	})
}

func seedAuction(store *fakeStore, now time.Time, mutate func(a *auction.Auction)) *auction.Auction {
	a := &auction.Auction{
		ID:             uuid.New(),
		ItemID:         uuid.New(),
		SellerID:       uuid.New(),
		StartPrice:     decimal.NewFromInt(10),
		BidStep:        decimal.NewFromInt(5),
		CurrentPrice:   decimal.NewFromInt(10),
		StartTime:      now.Add(-time.Hour),
		EndTime:        now.Add(time.Hour),
		BidRequirement: auction.RequirementNormal,
		Status:         auction.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mutate != nil {
		mutate(a)
	}
	store.putAuction(a)
	return a
}

func TestEngine_SubmitMaximum_FullFlow(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, nil)
	ctx := context.Background()

	bidderA := uuid.New()
	bidderB := uuid.New()

	first, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderA, MaxAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.True(t, first.CurrentPrice.Equal(decimal.NewFromInt(10)))
	require.Equal(t, bidderA, *first.HighestBidderID)

	second, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderB, MaxAmount: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	require.True(t, second.CurrentPrice.Equal(decimal.NewFromInt(105)))
	require.Equal(t, bidderB, *second.HighestBidderID)

	// The persisted auction matches the outcome
	persisted := store.auctionByID(a.ID)
	require.True(t, persisted.CurrentPrice.Equal(decimal.NewFromInt(105)))
	require.Equal(t, bidderB, *persisted.HighestBidderID)

	// Two price-setting records landed in the immutable log
	records, err := engine.ListBidRecords(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, bidderB, records[0].BidderID)

	timeline, err := engine.ListTimeline(ctx, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, timeline)

	require.Eventually(t, func() bool {
		return store.noticeCount(outbound.NoticeBidAccepted) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_SubmitMaximum_AuctionLifecycleGuards(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		mutate  func(a *auction.Auction)
		wantErr error
	}{
		{
			name:    "closed_auction",
			mutate:  func(a *auction.Auction) { a.Status = auction.StatusClosed },
			wantErr: shared.ErrAuctionClosed,
		},
		{
			name:    "expired_auction",
			mutate:  func(a *auction.Auction) { a.Status = auction.StatusExpired },
			wantErr: shared.ErrAuctionClosed,
		},
		{
			name:    "not_yet_started",
			mutate:  func(a *auction.Auction) { a.StartTime = now.Add(time.Hour) },
			wantErr: shared.ErrAuctionNotStarted,
		},
		{
			name:    "past_end_time",
			mutate:  func(a *auction.Auction) { a.EndTime = now.Add(-time.Minute) },
			wantErr: shared.ErrAuctionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			engine := newTestEngine(store, now, time.Second)
			a := seedAuction(store, now, tt.mutate)

			_, err := engine.SubmitMaximum(context.Background(), inbound.SubmitMaximumRequest{
				AuctionID: a.ID, BidderID: uuid.New(), MaxAmount: decimal.NewFromInt(100),
			})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_SubmitMaximum_LaneBusy(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, 20*time.Millisecond)
	a := seedAuction(store, now, nil)

	release, err := engine.lanes.acquire(context.Background(), a.ID)
	require.NoError(t, err)
	defer release()

	_, err = engine.SubmitMaximum(context.Background(), inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: uuid.New(), MaxAmount: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrLaneBusy)
}

func TestEngine_QualifiedAuction_ApprovalWorkflow(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, func(a *auction.Auction) {
		a.BidRequirement = auction.RequirementQualified
	})
	ctx := context.Background()
	bidder := uuid.New()

	// No rating history: the first attempt opens a pending request
	_, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)

	request := store.requestFor(a.ID, bidder)
	require.NotNil(t, request)
	require.True(t, request.IsPending())

	// Retrying while pending stays refused and opens nothing new
	_, err = engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)
	require.True(t, store.requestFor(a.ID, bidder).IsPending())

	// Only the seller may decide
	err = engine.ApproveBidRequest(ctx, inbound.DecideRequestRequest{
		AuctionID: a.ID, SellerID: uuid.New(), BidderID: bidder,
	})
	require.ErrorIs(t, err, shared.ErrNotSeller)

	err = engine.ApproveBidRequest(ctx, inbound.DecideRequestRequest{
		AuctionID: a.ID, SellerID: a.SellerID, BidderID: bidder,
	})
	require.NoError(t, err)

	// Approved bidders get through
	outcome, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.Equal(t, bidder, *outcome.HighestBidderID)
}

func TestEngine_QualifiedAuction_ApprovalNoticeReachesNotifier(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, func(a *auction.Auction) {
		a.BidRequirement = auction.RequirementQualified
	})
	bidder := uuid.New()

	// The refused submission still commits the pending request, so the
	// seller must be told about it
	_, err := engine.SubmitMaximum(context.Background(), inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)
	require.NotNil(t, store.requestFor(a.ID, bidder))

	require.Eventually(t, func() bool {
		return store.noticeCount(outbound.NoticeApprovalRequested) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_QualifiedAuction_RejectionIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, func(a *auction.Auction) {
		a.BidRequirement = auction.RequirementQualified
	})
	ctx := context.Background()
	bidder := uuid.New()

	_, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)

	err = engine.RejectBidRequest(ctx, inbound.DecideRequestRequest{
		AuctionID: a.ID, SellerID: a.SellerID, BidderID: bidder,
	})
	require.NoError(t, err)

	// Rejected stays rejected, no re-request path
	_, err = engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)

	// A decided request refuses any further decision
	err = engine.ApproveBidRequest(ctx, inbound.DecideRequestRequest{
		AuctionID: a.ID, SellerID: a.SellerID, BidderID: bidder,
	})
	require.ErrorIs(t, err, shared.ErrBidRequestFinalized)
}

func TestEngine_QualifiedAuction_RatingGate(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, func(a *auction.Auction) {
		a.BidRequirement = auction.RequirementQualified
	})
	ctx := context.Background()

	trusted := uuid.New()
	store.putRating(shared.RatingSummary{BidderID: trusted, PositiveVotes: 90, TotalVotes: 100})

	outcome, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: trusted, MaxAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.Equal(t, trusted, *outcome.HighestBidderID)
	require.Nil(t, store.requestFor(a.ID, trusted))

	// A poor rating blocks outright, it never opens a request
	shaky := uuid.New()
	store.putRating(shared.RatingSummary{BidderID: shaky, PositiveVotes: 50, TotalVotes: 100})

	_, err = engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: shaky, MaxAmount: decimal.NewFromInt(200),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)
	require.Nil(t, store.requestFor(a.ID, shaky))
}

func TestEngine_KickBidder(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, nil)
	ctx := context.Background()

	bidderA := uuid.New()
	bidderB := uuid.New()

	_, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderA, MaxAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderB, MaxAmount: decimal.NewFromInt(150),
	})
	require.NoError(t, err)

	// Only the seller may kick
	_, err = engine.KickBidder(ctx, inbound.KickBidderRequest{
		AuctionID: a.ID, SellerID: uuid.New(), BidderID: bidderB,
	})
	require.ErrorIs(t, err, shared.ErrNotSeller)

	outcome, err := engine.KickBidder(ctx, inbound.KickBidderRequest{
		AuctionID: a.ID, SellerID: a.SellerID, BidderID: bidderB, Reason: "shill bidding",
	})
	require.NoError(t, err)
	require.True(t, outcome.Recalculated)
	require.Equal(t, bidderA, *outcome.HighestBidderID)
	require.True(t, outcome.CurrentPrice.Equal(decimal.NewFromInt(10)))

	persisted := store.auctionByID(a.ID)
	require.Equal(t, bidderA, *persisted.HighestBidderID)

	// The kicked bidder is blocked from coming back
	_, err = engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderB, MaxAmount: decimal.NewFromInt(500),
	})
	require.ErrorIs(t, err, shared.ErrNotEligible)

	// Re-kicking is a harmless no-op
	again, err := engine.KickBidder(ctx, inbound.KickBidderRequest{
		AuctionID: a.ID, SellerID: a.SellerID, BidderID: bidderB,
	})
	require.NoError(t, err)
	require.False(t, again.Recalculated)
	require.True(t, again.CurrentPrice.Equal(outcome.CurrentPrice))
}

func TestEngine_BuyNow(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	buyNow := decimal.NewFromInt(500)
	a := seedAuction(store, now, func(a *auction.Auction) {
		a.BuyNowPrice = &buyNow
	})
	ctx := context.Background()
	buyer := uuid.New()

	require.NoError(t, fakeScheduler{store}.Schedule(a.ID, a.EndTime))

	outcome, err := engine.BuyNow(ctx, inbound.BuyNowRequest{AuctionID: a.ID, BidderID: buyer})
	require.NoError(t, err)
	require.Equal(t, auction.StatusClosed, outcome.Status)
	require.True(t, outcome.CurrentPrice.Equal(buyNow))
	require.Equal(t, buyer, *outcome.HighestBidderID)

	persisted := store.auctionByID(a.ID)
	require.Equal(t, auction.StatusClosed, persisted.Status)

	// The close schedule entry is gone
	_, scheduled := store.scheduledAt(a.ID)
	require.False(t, scheduled)

	// No further bids once closed
	_, err = engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: uuid.New(), MaxAmount: decimal.NewFromInt(600),
	})
	require.ErrorIs(t, err, shared.ErrAuctionClosed)
}

func TestEngine_BuyNow_Unavailable(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, nil)

	_, err := engine.BuyNow(context.Background(), inbound.BuyNowRequest{
		AuctionID: a.ID, BidderID: uuid.New(),
	})
	require.ErrorIs(t, err, shared.ErrBuyNowUnavailable)
}

func TestEngine_AttemptClose(t *testing.T) {
	now := time.Now().UTC()
	ctx := context.Background()

	t.Run("before_end_time_skips", func(t *testing.T) {
		store := newFakeStore()
		engine := newTestEngine(store, now, time.Second)
		a := seedAuction(store, now, nil)

		outcome, err := engine.AttemptClose(ctx, a.ID, now)
		require.NoError(t, err)
		require.Equal(t, auction.StatusActive, outcome.Status)
		require.Equal(t, auction.StatusActive, store.auctionByID(a.ID).Status)
	})

	t.Run("with_leader_closes", func(t *testing.T) {
		store := newFakeStore()
		engine := newTestEngine(store, now, time.Second)
		a := seedAuction(store, now, nil)
		bidder := uuid.New()

		_, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
			AuctionID: a.ID, BidderID: bidder, MaxAmount: decimal.NewFromInt(100),
		})
		require.NoError(t, err)

		outcome, err := engine.AttemptClose(ctx, a.ID, a.EndTime.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, auction.StatusClosed, outcome.Status)
		require.Equal(t, bidder, *outcome.WinnerID)
		require.True(t, outcome.FinalPrice.Equal(decimal.NewFromInt(10)))
	})

	t.Run("without_bids_expires", func(t *testing.T) {
		store := newFakeStore()
		engine := newTestEngine(store, now, time.Second)
		a := seedAuction(store, now, nil)

		outcome, err := engine.AttemptClose(ctx, a.ID, a.EndTime.Add(time.Second))
		require.NoError(t, err)
		require.Equal(t, auction.StatusExpired, outcome.Status)
		require.Nil(t, outcome.WinnerID)
	})

	t.Run("terminal_is_idempotent", func(t *testing.T) {
		store := newFakeStore()
		engine := newTestEngine(store, now, time.Second)
		a := seedAuction(store, now, nil)

		_, err := engine.AttemptClose(ctx, a.ID, a.EndTime.Add(time.Second))
		require.NoError(t, err)

		outcome, err := engine.AttemptClose(ctx, a.ID, a.EndTime.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, auction.StatusExpired, outcome.Status)
	})

	t.Run("unknown_auction", func(t *testing.T) {
		store := newFakeStore()
		engine := newTestEngine(store, now, time.Second)

		_, err := engine.AttemptClose(ctx, uuid.New(), now)
		require.ErrorIs(t, err, shared.ErrAuctionNotFound)
	})
}

func TestEngine_AutoExtend(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, func(a *auction.Auction) {
		a.AutoExtendEnabled = true
		a.EndTime = now.Add(2 * time.Minute)
	})
	ctx := context.Background()

	bidderA := uuid.New()
	bidderB := uuid.New()

	// The first maximum leaves the price at start, no extension
	first, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderA, MaxAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.False(t, first.Extended)

	// A price-moving bid inside the threshold pushes the end time out
	second, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderB, MaxAmount: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	require.True(t, second.Extended)
	require.Equal(t, now.Add(10*time.Minute), second.EndTime)

	// The close schedule follows the new end time
	at, ok := store.scheduledAt(a.ID)
	require.True(t, ok)
	require.Equal(t, now.Add(10*time.Minute), at)

	// A maximum-only raise never extends, even near the deadline
	raised, err := engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: a.ID, BidderID: bidderB, MaxAmount: decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	require.False(t, raised.Extended)
	require.Equal(t, now.Add(10*time.Minute), raised.EndTime)
}

func TestEngine_EvaluateEligibility(t *testing.T) {
	now := time.Now().UTC()
	store := newFakeStore()
	engine := newTestEngine(store, now, time.Second)
	a := seedAuction(store, now, nil)

	decision, err := engine.EvaluateEligibility(context.Background(), a.ID, uuid.New())
	require.NoError(t, err)
	require.True(t, decision.Allowed())
}
