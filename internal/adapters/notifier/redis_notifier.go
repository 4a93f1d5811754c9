package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-bidding-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisNotifier publishes engine notices over Redis pub/sub. Email
// dispatch and live watchers consume the per-auction channels
// independently; the engine never waits on them.
type RedisNotifier struct {
	client *redis.Client
	logger zerolog.Logger
}

type RedisNotifierParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewNotifier(params RedisNotifierParams) *RedisNotifier {
	return &RedisNotifier{
		client: params.RedisClient,
		logger: params.Logger.With().Str("component", "redis_notifier").Logger(),
	}
}

func channelName(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// Publish publishes a notice to the auction's channel
func (n *RedisNotifier) Publish(ctx context.Context, auctionID uuid.UUID, notice outbound.Notice) error {
	if notice.Timestamp == 0 {
		notice.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	if err := n.client.Publish(ctx, channelName(auctionID), payload).Err(); err != nil {
		n.logger.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Str("notice_type", string(notice.Type)).
			Msg("Failed to publish notice")
		return fmt.Errorf("failed to publish notice: %w", err)
	}

	n.logger.Debug().
		Str("auction_id", auctionID.String()).
		Str("notice_type", string(notice.Type)).
		Msg("Notice published")

	return nil
}

// Watch subscribes to an auction's channel and forwards decoded notices
// until the context is cancelled. Used by the WebSocket gateway to push
// live updates to watchers.
func (n *RedisNotifier) Watch(ctx context.Context, auctionID uuid.UUID) (<-chan outbound.Notice, func()) {
	pubsub := n.client.Subscribe(ctx, channelName(auctionID))
	notices := make(chan outbound.Notice, 16)

	go func() {
		defer close(notices)
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var notice outbound.Notice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
					n.logger.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to decode notice")
					continue
				}
				select {
				case notices <- notice:
				default:
					n.logger.Warn().Str("channel", msg.Channel).Msg("Watcher channel full, dropping notice")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() {
		if err := pubsub.Close(); err != nil {
			n.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Error closing pubsub")
		}
	}
	return notices, stop
}
