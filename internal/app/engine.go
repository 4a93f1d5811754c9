package app

import (
	"context"
	"time"

	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/bidding"
	"marketplace-bidding-engine/internal/domain/eligibility"
	"marketplace-bidding-engine/internal/domain/shared"
	"marketplace-bidding-engine/internal/ports/inbound"
	"marketplace-bidding-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine is the auction state machine. It serializes every mutating
// operation on one auction behind that auction's lane, runs the pure
// domain computations while the lane is held, commits the transition in
// a single transaction, and hands notices to the notifier only after
// the lane is released.
type Engine struct {
	auctions  outbound.AuctionRepository
	maximums  outbound.MaximumRepository
	records   outbound.BidRecordRepository
	requests  outbound.BidRequestRepository
	blocked   outbound.BlockedBidderRepository
	events    outbound.EventRepository
	ratings   outbound.RatingProvider
	notifier  outbound.Notifier
	scheduler outbound.CloseScheduler
	tx        outbound.TransactionManager
	lanes     *laneRegistry
	extend    auction.AutoExtendPolicy
	clock     func() time.Time
	logger    zerolog.Logger
}

type EngineParams struct {
	Auctions   outbound.AuctionRepository
	Maximums   outbound.MaximumRepository
	Records    outbound.BidRecordRepository
	Requests   outbound.BidRequestRepository
	Blocked    outbound.BlockedBidderRepository
	Events     outbound.EventRepository
	Ratings    outbound.RatingProvider
	Notifier   outbound.Notifier
	Scheduler  outbound.CloseScheduler
	Tx         outbound.TransactionManager
	LaneWait   time.Duration
	AutoExtend auction.AutoExtendPolicy
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// NewEngine creates a new bidding engine
func NewEngine(params EngineParams) *Engine {
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		auctions:  params.Auctions,
		maximums:  params.Maximums,
		records:   params.Records,
		requests:  params.Requests,
		blocked:   params.Blocked,
		events:    params.Events,
		ratings:   params.Ratings,
		notifier:  params.Notifier,
		scheduler: params.Scheduler,
		tx:        params.Tx,
		lanes:     newLaneRegistry(params.LaneWait),
		extend:    params.AutoExtend,
		clock:     clock,
		logger:    params.Logger.With().Str("component", "bidding_engine").Logger(),
	}
}

// SetScheduler wires the close scheduler after construction. The
// scheduler needs the engine for close attempts, so the two are linked
// in a second step. Must be called before the engine serves requests.
func (e *Engine) SetScheduler(s outbound.CloseScheduler) {
	e.scheduler = s
}

// SubmitMaximum places or raises a bidder's proxy ceiling on an auction.
func (e *Engine) SubmitMaximum(ctx context.Context, req inbound.SubmitMaximumRequest) (*inbound.BidOutcome, error) {
	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("max_amount", req.MaxAmount.String()).
		Msg("Attempting to submit maximum")

	release, err := e.lanes.acquire(ctx, req.AuctionID)
	if err != nil {
		e.logger.Warn().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to acquire auction lane")
		return nil, err
	}

	outcome, notices, err := e.submitLocked(ctx, req)
	release()

	// A refused submission can still carry notices: opening a bid
	// request is a committed mutation the seller must hear about.
	e.dispatch(req.AuctionID, notices)

	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) submitLocked(ctx context.Context, req inbound.SubmitMaximumRequest) (*inbound.BidOutcome, []outbound.Notice, error) {
	now := e.clock()

	a, err := e.loadOpenAuction(ctx, req.AuctionID, now)
	if err != nil {
		return nil, nil, err
	}

	decision, _, err := e.gate(ctx, a, req.BidderID)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed() {
		return e.handleRefusal(ctx, a, req.BidderID, decision, now)
	}

	actives, err := e.maximums.GetActiveByAuction(ctx, req.AuctionID)
	if err != nil {
		return nil, nil, err
	}

	result, err := bidding.ApplySubmission(a, actives, bidding.Submission{
		BidderID: req.BidderID,
		Amount:   req.MaxAmount,
		Seq:      nextSeq(actives),
		At:       now,
	})
	if err != nil {
		e.logger.Warn().Err(err).
			Str("auction_id", req.AuctionID.String()).
			Str("bidder_id", req.BidderID.String()).
			Msg("Submission rejected")
		return nil, nil, err
	}

	if err := e.checkInvariants(a, result); err != nil {
		return nil, nil, err
	}

	extended := result.PriceMoved && e.extend.Apply(a, now)

	err = e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := e.auctions.Update(ctx, a); err != nil {
			return err
		}
		if err := e.maximums.Save(ctx, result.Maximum); err != nil {
			return err
		}
		if result.Record != nil {
			if err := e.records.Append(ctx, result.Record); err != nil {
				return err
			}
		}
		return e.events.Append(ctx, result.Events)
	})
	if err != nil {
		e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to commit bid transition")
		return nil, nil, err
	}

	if extended && e.scheduler != nil {
		if err := e.scheduler.Schedule(a.ID, a.EndTime); err != nil {
			// The sweep re-checks end times under the lane, so a stale
			// schedule entry is harmless.
			e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to reschedule auction close")
		}
	}

	e.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("current_price", a.CurrentPrice.String()).
		Bool("extended", extended).
		Msg("Maximum accepted")

	outcome := &inbound.BidOutcome{
		AuctionID:       a.ID,
		CurrentPrice:    a.CurrentPrice,
		HighestBidderID: a.HighestBidderID,
		EndTime:         a.EndTime,
		Extended:        extended,
		Status:          a.Status,
		Events:          result.Events,
	}

	notices := []outbound.Notice{bidAcceptedNotice(a, result, now)}
	if extended {
		notices = append(notices, outbound.Notice{
			Type:      outbound.NoticeAuctionExtended,
			AuctionID: a.ID,
			Data:      map[string]interface{}{"end_time": a.EndTime.Format(time.RFC3339)},
			Timestamp: now.Unix(),
		})
	}
	return outcome, notices, nil
}

// BuyNow takes the auction at its buy-now price and closes it on the
// spot, ignoring all standing maximums.
func (e *Engine) BuyNow(ctx context.Context, req inbound.BuyNowRequest) (*inbound.BidOutcome, error) {
	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Msg("Attempting buy-now")

	release, err := e.lanes.acquire(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	outcome, notices, err := e.buyNowLocked(ctx, req)
	release()
	e.dispatch(req.AuctionID, notices)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) buyNowLocked(ctx context.Context, req inbound.BuyNowRequest) (*inbound.BidOutcome, []outbound.Notice, error) {
	now := e.clock()

	a, err := e.loadOpenAuction(ctx, req.AuctionID, now)
	if err != nil {
		return nil, nil, err
	}

	decision, _, err := e.gate(ctx, a, req.BidderID)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed() {
		return e.handleRefusal(ctx, a, req.BidderID, decision, now)
	}

	result, err := bidding.ApplyBuyNow(a, req.BidderID, now)
	if err != nil {
		return nil, nil, err
	}

	err = e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := e.auctions.Update(ctx, a); err != nil {
			return err
		}
		if err := e.records.Append(ctx, result.Record); err != nil {
			return err
		}
		return e.events.Append(ctx, result.Events)
	})
	if err != nil {
		e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to commit buy-now transition")
		return nil, nil, err
	}

	if e.scheduler != nil {
		if err := e.scheduler.Cancel(a.ID); err != nil {
			e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to cancel close schedule")
		}
	}

	e.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("buyer_id", req.BidderID.String()).
		Str("final_price", a.CurrentPrice.String()).
		Msg("Auction closed via buy-now")

	outcome := &inbound.BidOutcome{
		AuctionID:       a.ID,
		CurrentPrice:    a.CurrentPrice,
		HighestBidderID: a.HighestBidderID,
		EndTime:         a.EndTime,
		Status:          a.Status,
		Events:          result.Events,
	}
	notices := []outbound.Notice{closedNotice(a, now)}
	return outcome, notices, nil
}

// KickBidder removes a bidder from an auction, invalidates their
// standing maximum and re-derives the auction state from the remaining
// participants. Re-kicking an already removed bidder is a no-op.
func (e *Engine) KickBidder(ctx context.Context, req inbound.KickBidderRequest) (*inbound.KickOutcome, error) {
	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("reason", req.Reason).
		Msg("Attempting to kick bidder")

	release, err := e.lanes.acquire(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	outcome, notices, err := e.kickLocked(ctx, req)
	release()
	if err != nil {
		return nil, err
	}

	e.dispatch(req.AuctionID, notices)
	return outcome, nil
}

func (e *Engine) kickLocked(ctx context.Context, req inbound.KickBidderRequest) (*inbound.KickOutcome, []outbound.Notice, error) {
	now := e.clock()

	a, err := e.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, nil, err
	}
	if a.IsTerminal() {
		return nil, nil, shared.ErrAuctionClosed
	}
	if a.SellerID != req.SellerID {
		return nil, nil, shared.ErrNotSeller
	}

	actives, err := e.maximums.GetActiveByAuction(ctx, req.AuctionID)
	if err != nil {
		return nil, nil, err
	}

	result := bidding.RecalculateAfterKick(a, actives, req.BidderID, now)

	err = e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := e.blocked.Block(ctx, req.AuctionID, req.BidderID, req.Reason); err != nil {
			return err
		}
		if result.Deactivated != nil {
			if err := e.maximums.Save(ctx, result.Deactivated); err != nil {
				return err
			}
		}
		if result.Changed {
			return e.auctions.Update(ctx, a)
		}
		return nil
	})
	if err != nil {
		e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to commit kick transition")
		return nil, nil, err
	}

	e.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("bidder_id", req.BidderID.String()).
		Bool("recalculated", result.Changed).
		Str("current_price", a.CurrentPrice.String()).
		Msg("Bidder kicked")

	outcome := &inbound.KickOutcome{
		AuctionID:       a.ID,
		CurrentPrice:    a.CurrentPrice,
		HighestBidderID: a.HighestBidderID,
		Recalculated:    result.Changed,
	}
	notices := []outbound.Notice{{
		Type:      outbound.NoticeBidderKicked,
		AuctionID: a.ID,
		Data: map[string]interface{}{
			"bidder_id":     req.BidderID.String(),
			"reason":        req.Reason,
			"current_price": a.CurrentPrice.String(),
		},
		Timestamp: now.Unix(),
	}}
	return outcome, notices, nil
}

// AttemptClose transitions the auction to its terminal state once the
// end time (including any extensions) has passed. The end time is
// re-checked after acquiring the lane: an extension racing with the
// sweep wins, and the sweep simply comes back later.
func (e *Engine) AttemptClose(ctx context.Context, auctionID uuid.UUID, now time.Time) (*inbound.CloseOutcome, error) {
	release, err := e.lanes.acquire(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	outcome, notices, err := e.closeLocked(ctx, auctionID, now)
	release()
	if err != nil {
		return nil, err
	}

	e.dispatch(auctionID, notices)
	return outcome, nil
}

func (e *Engine) closeLocked(ctx context.Context, auctionID uuid.UUID, now time.Time) (*inbound.CloseOutcome, []outbound.Notice, error) {
	a, err := e.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}

	outcome := &inbound.CloseOutcome{
		AuctionID: a.ID,
		Status:    a.Status,
		EndTime:   a.EndTime,
	}

	if a.IsTerminal() {
		return outcome, nil, nil
	}

	if !a.Ended(now) {
		// Extended while the close attempt was in flight; not due yet.
		e.logger.Debug().
			Str("auction_id", a.ID.String()).
			Time("end_time", a.EndTime).
			Msg("Close attempt before end time, skipping")
		return outcome, nil, nil
	}

	if a.HighestBidderID != nil {
		a.Close(now)
	} else {
		a.Expire(now)
	}

	err = e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return e.auctions.Update(ctx, a)
	})
	if err != nil {
		e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to commit close transition")
		return nil, nil, err
	}

	if e.scheduler != nil {
		if err := e.scheduler.Cancel(a.ID); err != nil {
			e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to remove close schedule entry")
		}
	}

	outcome.Status = a.Status
	outcome.EndTime = a.EndTime
	if a.HighestBidderID != nil {
		outcome.WinnerID = a.HighestBidderID
		price := a.CurrentPrice
		outcome.FinalPrice = &price
	}

	e.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("status", string(a.Status)).
		Msg("Auction reached terminal state")

	return outcome, []outbound.Notice{closedNotice(a, now)}, nil
}

// EvaluateEligibility is the read-only gate check used by UI
// collaborators to render the bid panel. It takes no lane.
func (e *Engine) EvaluateEligibility(ctx context.Context, auctionID, bidderID uuid.UUID) (eligibility.Decision, error) {
	a, err := e.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return eligibility.Decision{}, err
	}

	decision, _, err := e.gate(ctx, a, bidderID)
	return decision, err
}

// ApproveBidRequest grants a pending qualified-auction request.
func (e *Engine) ApproveBidRequest(ctx context.Context, req inbound.DecideRequestRequest) error {
	return e.decideRequest(ctx, req, true)
}

// RejectBidRequest refuses a pending qualified-auction request. The
// rejection is terminal: the bidder cannot re-request on this auction.
func (e *Engine) RejectBidRequest(ctx context.Context, req inbound.DecideRequestRequest) error {
	return e.decideRequest(ctx, req, false)
}

func (e *Engine) decideRequest(ctx context.Context, req inbound.DecideRequestRequest, approve bool) error {
	release, err := e.lanes.acquire(ctx, req.AuctionID)
	if err != nil {
		return err
	}

	notices, err := e.decideRequestLocked(ctx, req, approve)
	release()
	if err != nil {
		return err
	}

	e.dispatch(req.AuctionID, notices)
	return nil
}

func (e *Engine) decideRequestLocked(ctx context.Context, req inbound.DecideRequestRequest, approve bool) ([]outbound.Notice, error) {
	now := e.clock()

	a, err := e.auctions.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}
	if a.SellerID != req.SellerID {
		return nil, shared.ErrNotSeller
	}

	r, err := e.requests.Get(ctx, req.AuctionID, req.BidderID)
	if err != nil {
		return nil, err
	}

	if approve {
		err = r.Approve(now)
	} else {
		err = r.Reject(now)
	}
	if err != nil {
		return nil, err
	}

	err = e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return e.requests.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("status", string(r.Status)).
		Msg("Bid request decided")

	return []outbound.Notice{{
		Type:      outbound.NoticeRequestDecided,
		AuctionID: req.AuctionID,
		Data: map[string]interface{}{
			"bidder_id": req.BidderID.String(),
			"status":    string(r.Status),
		},
		Timestamp: now.Unix(),
	}}, nil
}

// GetAuction retrieves an auction by ID
func (e *Engine) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return e.auctions.GetByID(ctx, auctionID)
}

// ListTimeline retrieves the auction's event timeline, oldest first
func (e *Engine) ListTimeline(ctx context.Context, auctionID uuid.UUID) ([]shared.AuctionEvent, error) {
	return e.events.ListByAuction(ctx, auctionID)
}

// ListBidRecords retrieves the immutable bid log, newest first
func (e *Engine) ListBidRecords(ctx context.Context, auctionID uuid.UUID) ([]*bidding.BidRecord, error) {
	return e.records.ListByAuction(ctx, auctionID)
}

// loadOpenAuction loads the auction and verifies it accepts bids now.
func (e *Engine) loadOpenAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (*auction.Auction, error) {
	a, err := e.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.IsTerminal() {
		return nil, shared.ErrAuctionClosed
	}
	if !a.Started(now) {
		return nil, shared.ErrAuctionNotStarted
	}
	if a.Ended(now) {
		// Past end time, awaiting the close sweep.
		return nil, shared.ErrAuctionClosed
	}
	return a, nil
}

// gate takes the fresh eligibility snapshot and evaluates it.
func (e *Engine) gate(ctx context.Context, a *auction.Auction, bidderID uuid.UUID) (eligibility.Decision, *eligibility.BidRequest, error) {
	isBlocked, err := e.blocked.IsBlocked(ctx, a.ID, bidderID)
	if err != nil {
		return eligibility.Decision{}, nil, err
	}

	var request *eligibility.BidRequest
	var rating shared.RatingSummary

	if !isBlocked && a.BidRequirement == auction.RequirementQualified {
		request, err = e.requests.Get(ctx, a.ID, bidderID)
		if err != nil && err != shared.ErrBidRequestNotFound {
			return eligibility.Decision{}, nil, err
		}
		if request == nil {
			rating, err = e.ratings.GetRating(ctx, bidderID)
			if err != nil {
				return eligibility.Decision{}, nil, err
			}
		}
	}

	decision := eligibility.Evaluate(eligibility.Input{
		Requirement: a.BidRequirement,
		Blocked:     isBlocked,
		Request:     request,
		Rating:      rating,
	})
	return decision, request, nil
}

// handleRefusal turns a non-allowed verdict into the caller-facing
// error, opening the pending bid request when approval is needed.
func (e *Engine) handleRefusal(ctx context.Context, a *auction.Auction, bidderID uuid.UUID, decision eligibility.Decision, now time.Time) (*inbound.BidOutcome, []outbound.Notice, error) {
	if decision.Verdict != eligibility.VerdictNeedsApproval {
		return nil, nil, shared.NewEligibilityError(decision.Reason)
	}

	request := eligibility.NewBidRequest(a.ID, bidderID, now)
	err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return e.requests.Create(ctx, request)
	})
	if err != nil {
		e.logger.Error().Err(err).
			Str("auction_id", a.ID.String()).
			Str("bidder_id", bidderID.String()).
			Msg("Failed to open bid request")
		return nil, nil, err
	}

	e.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("bidder_id", bidderID.String()).
		Msg("Bid request opened, awaiting seller approval")

	notices := []outbound.Notice{{
		Type:      outbound.NoticeApprovalRequested,
		AuctionID: a.ID,
		Data:      map[string]interface{}{"bidder_id": bidderID.String()},
		Timestamp: now.Unix(),
	}}
	return nil, notices, shared.NewEligibilityError(decision.Reason)
}

// checkInvariants guards the committed state against resolver bugs.
// A violation aborts the in-flight mutation before anything is written.
func (e *Engine) checkInvariants(a *auction.Auction, result *bidding.Result) error {
	if !a.OnGrid(result.Price) {
		e.logger.Error().
			Str("auction_id", a.ID.String()).
			Str("price", result.Price.String()).
			Msg("Consistency violation: clearing price off grid")
		return shared.ErrPriceOffGrid
	}
	if result.LeaderID == nil {
		e.logger.Error().
			Str("auction_id", a.ID.String()).
			Msg("Consistency violation: clearing produced no leader")
		return shared.ErrLeaderWithoutMaximum
	}
	return nil
}

// dispatch hands notices to the notifier after the lane is released.
// Delivery is fire-and-forget; the engine never waits on it.
func (e *Engine) dispatch(auctionID uuid.UUID, notices []outbound.Notice) {
	if e.notifier == nil || len(notices) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, notice := range notices {
			if err := e.notifier.Publish(ctx, auctionID, notice); err != nil {
				e.logger.Error().Err(err).
					Str("auction_id", auctionID.String()).
					Str("notice_type", string(notice.Type)).
					Msg("Failed to publish notice")
			}
		}
	}()
}

func nextSeq(actives []*bidding.StandingMaximum) int64 {
	var max int64
	for _, m := range actives {
		if m.Seq > max {
			max = m.Seq
		}
	}
	return max + 1
}

func bidAcceptedNotice(a *auction.Auction, result *bidding.Result, now time.Time) outbound.Notice {
	data := map[string]interface{}{
		"current_price":  a.CurrentPrice.String(),
		"price_moved":    result.PriceMoved,
		"leader_changed": result.LeaderChanged,
	}
	if a.HighestBidderID != nil {
		data["highest_bidder_id"] = a.HighestBidderID.String()
	}
	return outbound.Notice{
		Type:      outbound.NoticeBidAccepted,
		AuctionID: a.ID,
		Data:      data,
		Timestamp: now.Unix(),
	}
}

func closedNotice(a *auction.Auction, now time.Time) outbound.Notice {
	data := map[string]interface{}{
		"status": string(a.Status),
	}
	if a.HighestBidderID != nil {
		data["winner_id"] = a.HighestBidderID.String()
		data["final_price"] = a.CurrentPrice.String()
	}
	return outbound.Notice{
		Type:      outbound.NoticeAuctionClosed,
		AuctionID: a.ID,
		Data:      data,
		Timestamp: now.Unix(),
	}
}
