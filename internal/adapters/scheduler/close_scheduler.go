package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"marketplace-bidding-engine/internal/config"
	"marketplace-bidding-engine/internal/domain/auction"
	"marketplace-bidding-engine/internal/domain/shared"
	"marketplace-bidding-engine/internal/ports/inbound"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const closingsKey = "auction:closings"

// CloseService is the slice of the engine the sweep needs.
type CloseService interface {
	AttemptClose(ctx context.Context, auctionID uuid.UUID, now time.Time) (*inbound.CloseOutcome, error)
}

// CloseScheduler tracks every auction's end time in a Redis sorted set
// and sweeps due auctions into the engine's AttemptClose. The sweep
// competes for the same per-auction lane as ordinary bids, so an
// extension racing with a close simply wins and the entry is retried
// on the next tick.
type CloseScheduler struct {
	redis     *redis.Client
	service   CloseService
	pool      *pond.WorkerPool
	batchSize int
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type CloseSchedulerParams struct {
	RedisClient *redis.Client
	Service     CloseService
	BatchSize   int
	Logger      zerolog.Logger
}

func NewCloseScheduler(params CloseSchedulerParams) *CloseScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	batch := params.BatchSize
	if batch <= 0 {
		batch = 10
	}

	return &CloseScheduler{
		redis:     params.RedisClient,
		service:   params.Service,
		pool:      pond.New(config.SweepWorkers, config.SweepCapacity, pond.Context(ctx)),
		batchSize: batch,
		logger:    params.Logger.With().Str("component", "close_scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Schedule records or replaces the close timestamp for an auction
func (s *CloseScheduler) Schedule(auctionID uuid.UUID, endTime time.Time) error {
	err := s.redis.ZAdd(s.ctx, closingsKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to schedule auction close")
		return fmt.Errorf("failed to schedule auction close: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction close scheduled")

	return nil
}

// Cancel drops an auction from the schedule
func (s *CloseScheduler) Cancel(auctionID uuid.UUID) error {
	if err := s.redis.ZRem(s.ctx, closingsKey, auctionID.String()).Err(); err != nil {
		return fmt.Errorf("failed to cancel auction close: %w", err)
	}
	return nil
}

// Start begins the sweep loop
func (s *CloseScheduler) Start() {
	s.logger.Info().Msg("Starting close scheduler")

	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop gracefully stops the scheduler
func (s *CloseScheduler) Stop() {
	s.logger.Info().Msg("Stopping close scheduler")
	s.cancel()
	s.wg.Wait()
	s.pool.Stop()
}

func (s *CloseScheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepDueAuctions()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweep loop stopped")
			return
		}
	}
}

// sweepDueAuctions finds auctions whose end time has passed and hands
// each to the worker pool for a close attempt.
func (s *CloseScheduler) sweepDueAuctions() {
	now := time.Now()

	due, err := s.redis.ZRangeByScore(s.ctx, closingsKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(s.batchSize),
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch due auctions")
		return
	}

	if len(due) > 0 {
		s.logger.Debug().Int("count", len(due)).Msg("Found due auctions")
	}

	for _, auctionIDStr := range due {
		auctionID, err := uuid.Parse(auctionIDStr)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionIDStr).Msg("Invalid auction ID in schedule")
			s.redis.ZRem(s.ctx, closingsKey, auctionIDStr)
			continue
		}

		s.pool.Submit(func() {
			s.attemptClose(auctionID, now)
		})
	}
}

func (s *CloseScheduler) attemptClose(auctionID uuid.UUID, now time.Time) {
	outcome, err := s.service.AttemptClose(s.ctx, auctionID, now)
	if err != nil {
		if err == shared.ErrLaneBusy {
			// A hot lane; the next tick retries.
			s.logger.Debug().Str("auction_id", auctionID.String()).Msg("Close attempt hit busy lane, will retry")
			return
		}
		if err == shared.ErrAuctionNotFound {
			s.redis.ZRem(s.ctx, closingsKey, auctionID.String())
			return
		}
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to close auction")
		return
	}

	switch {
	case outcome.Status == auction.StatusActive:
		// Extended while due; push the entry out to the new end time.
		if err := s.Schedule(auctionID, outcome.EndTime); err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to reschedule extended auction")
		}
	default:
		s.redis.ZRem(s.ctx, closingsKey, auctionID.String())
		s.logger.Info().
			Str("auction_id", auctionID.String()).
			Str("status", string(outcome.Status)).
			Msg("Auction swept to terminal state")
	}
}
