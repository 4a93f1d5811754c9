package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"marketplace-bidding-engine/internal/ports/inbound"
	"marketplace-bidding-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// NoticeWatcher hands out live notice feeds for a single auction.
// The Redis notifier implements it over pub/sub channels.
type NoticeWatcher interface {
	Watch(ctx context.Context, auctionID uuid.UUID) (<-chan outbound.Notice, func())
}

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients   map[string]*WsClient // clientID -> Client
	clientsMu sync.RWMutex
	watches   map[string]map[uuid.UUID]func() // clientID -> auctionID -> stop
	watchesMu sync.Mutex
	upgrader  websocket.Upgrader
	engine    inbound.BiddingEngine
	watcher   NoticeWatcher
	logger    zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader websocket.Upgrader
	Engine   inbound.BiddingEngine
	Watcher  NoticeWatcher
	Logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:  make(map[string]*WsClient),
		watches:  make(map[string]map[uuid.UUID]func()),
		upgrader: params.Upgrader,
		engine:   params.Engine,
		watcher:  params.Watcher,
		logger:   params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	bidderIDStr := r.URL.Query().Get("bidder_id")
	if bidderIDStr == "" {
		http.Error(w, "bidder_id is required", http.StatusBadRequest)
		return
	}

	bidderID, err := uuid.Parse(bidderIDStr)
	if err != nil {
		http.Error(w, "invalid bidder_id format", http.StatusBadRequest)
		return
	}

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		BidderID: bidderID,
		Conn:     conn,
		Handler:  handler,
		Logger:   handler.logger,
	})

	handler.registerClient(client)
	client.Start()

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Str("bidder_id", client.bidderID.String()).Msg("WebSocket client connected")
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	delete(handler.clients, client.id)
	handler.clientsMu.Unlock()

	handler.stopAllWatches(client.id)
	client.Stop()

	handler.logger.Info().Str("client_id", client.id).Msg("WebSocket client disconnected")
}

// HandleClientMessage routes a validated client message to the engine
func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	ctx, cancel := context.WithTimeout(client.ctx, 10*time.Second)
	defer cancel()

	switch msg.Type {
	case MessageTypePlaceMaxBid:
		return handler.handlePlaceMaxBid(ctx, client, msg)
	case MessageTypeBuyNow:
		return handler.handleBuyNow(ctx, client, msg)
	case MessageTypeKickBidder:
		return handler.handleKickBidder(ctx, client, msg)
	case MessageTypeApproveRequest:
		return handler.handleDecideRequest(ctx, client, msg, true)
	case MessageTypeRejectRequest:
		return handler.handleDecideRequest(ctx, client, msg, false)
	case MessageTypeGetAuction:
		return handler.handleGetAuction(ctx, client, msg)
	case MessageTypeGetTimeline:
		return handler.handleGetTimeline(ctx, client, msg)
	case MessageTypeCheckEligibility:
		return handler.handleCheckEligibility(ctx, client, msg)
	case MessageTypeWatch:
		return handler.startWatch(client, *msg.AuctionID)
	case MessageTypeUnwatch:
		handler.stopWatch(client.id, *msg.AuctionID)
		return nil
	default:
		return fmt.Errorf("unhandled message type: %s", msg.Type)
	}
}

func (handler *WsHandler) handlePlaceMaxBid(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	amount, err := msg.MaxAmount()
	if err != nil {
		return err
	}

	outcome, err := handler.engine.SubmitMaximum(ctx, inbound.SubmitMaximumRequest{
		AuctionID: *msg.AuctionID,
		BidderID:  client.bidderID,
		MaxAmount: amount,
	})
	if err != nil {
		return err
	}

	return client.Send(bidOutcomeMessage(outcome))
}

func (handler *WsHandler) handleBuyNow(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	outcome, err := handler.engine.BuyNow(ctx, inbound.BuyNowRequest{
		AuctionID: *msg.AuctionID,
		BidderID:  client.bidderID,
	})
	if err != nil {
		return err
	}

	return client.Send(bidOutcomeMessage(outcome))
}

func (handler *WsHandler) handleKickBidder(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	target, err := msg.TargetBidder()
	if err != nil {
		return err
	}
	reason, _ := msg.Data["reason"].(string)

	outcome, err := handler.engine.KickBidder(ctx, inbound.KickBidderRequest{
		AuctionID: *msg.AuctionID,
		SellerID:  client.bidderID,
		BidderID:  target,
		Reason:    reason,
	})
	if err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionState)
	response.AuctionID = msg.AuctionID
	response.Data["current_price"] = outcome.CurrentPrice.String()
	if outcome.HighestBidderID != nil {
		response.Data["highest_bidder_id"] = outcome.HighestBidderID.String()
	}
	response.Data["recalculated"] = outcome.Recalculated
	return client.Send(response)
}

func (handler *WsHandler) handleDecideRequest(ctx context.Context, client *WsClient, msg *ClientMessage, approve bool) error {
	target, err := msg.TargetBidder()
	if err != nil {
		return err
	}

	req := inbound.DecideRequestRequest{
		AuctionID: *msg.AuctionID,
		SellerID:  client.bidderID,
		BidderID:  target,
	}
	if approve {
		err = handler.engine.ApproveBidRequest(ctx, req)
	} else {
		err = handler.engine.RejectBidRequest(ctx, req)
	}
	if err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeNotice)
	response.AuctionID = msg.AuctionID
	response.Data["bidder_id"] = target.String()
	response.Data["approved"] = approve
	return client.Send(response)
}

func (handler *WsHandler) handleGetAuction(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	a, err := handler.engine.GetAuction(ctx, *msg.AuctionID)
	if err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionState)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = string(a.Status)
	response.Data["current_price"] = a.CurrentPrice.String()
	response.Data["minimum_bid"] = a.MinimumBid().String()
	response.Data["end_time"] = a.EndTime.Unix()
	if a.HighestBidderID != nil {
		response.Data["highest_bidder_id"] = a.HighestBidderID.String()
	}
	if a.BuyNowPrice != nil {
		response.Data["buy_now_price"] = a.BuyNowPrice.String()
	}
	return client.Send(response)
}

func (handler *WsHandler) handleGetTimeline(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	events, err := handler.engine.ListTimeline(ctx, *msg.AuctionID)
	if err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeTimeline)
	response.AuctionID = msg.AuctionID
	response.Data["events"] = events
	return client.Send(response)
}

func (handler *WsHandler) handleCheckEligibility(ctx context.Context, client *WsClient, msg *ClientMessage) error {
	// Sellers may check on behalf of another bidder
	bidderID := client.bidderID
	if _, ok := msg.Data["bidder_id"]; ok {
		target, err := msg.TargetBidder()
		if err != nil {
			return err
		}
		bidderID = target
	}

	decision, err := handler.engine.EvaluateEligibility(ctx, *msg.AuctionID, bidderID)
	if err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeEligibility)
	response.AuctionID = msg.AuctionID
	response.Data["bidder_id"] = bidderID.String()
	response.Data["verdict"] = string(decision.Verdict)
	if decision.Reason != "" {
		response.Data["reason"] = decision.Reason
	}
	return client.Send(response)
}

// startWatch subscribes the client to an auction's live notice feed.
// Watching the same auction twice is a no-op.
func (handler *WsHandler) startWatch(client *WsClient, auctionID uuid.UUID) error {
	handler.watchesMu.Lock()
	defer handler.watchesMu.Unlock()

	byAuction, ok := handler.watches[client.id]
	if !ok {
		byAuction = make(map[uuid.UUID]func())
		handler.watches[client.id] = byAuction
	}
	if _, exists := byAuction[auctionID]; exists {
		return nil
	}

	notices, stop := handler.watcher.Watch(client.ctx, auctionID)
	byAuction[auctionID] = stop

	go handler.forwardNotices(client, auctionID, notices)

	handler.logger.Debug().
		Str("client_id", client.id).
		Str("auction_id", auctionID.String()).
		Msg("Client watching auction")
	return nil
}

func (handler *WsHandler) forwardNotices(client *WsClient, auctionID uuid.UUID, notices <-chan outbound.Notice) {
	for {
		select {
		case notice, ok := <-notices:
			if !ok {
				return
			}
			msg := NewServerMessage(MessageTypeNotice)
			msg.AuctionID = &auctionID
			msg.Data["notice_type"] = string(notice.Type)
			for k, v := range notice.Data {
				msg.Data[k] = v
			}
			if err := client.Send(msg); err != nil {
				handler.logger.Debug().Err(err).Str("client_id", client.id).Msg("Dropping notice for slow client")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (handler *WsHandler) stopWatch(clientID string, auctionID uuid.UUID) {
	handler.watchesMu.Lock()
	defer handler.watchesMu.Unlock()

	if stop, ok := handler.watches[clientID][auctionID]; ok {
		stop()
		delete(handler.watches[clientID], auctionID)
	}
}

func (handler *WsHandler) stopAllWatches(clientID string) {
	handler.watchesMu.Lock()
	defer handler.watchesMu.Unlock()

	for _, stop := range handler.watches[clientID] {
		stop()
	}
	delete(handler.watches, clientID)
}

func bidOutcomeMessage(outcome *inbound.BidOutcome) *ServerMessage {
	msg := NewServerMessage(MessageTypeBidAccepted)
	msg.AuctionID = &outcome.AuctionID
	msg.Data["current_price"] = outcome.CurrentPrice.String()
	msg.Data["status"] = string(outcome.Status)
	msg.Data["end_time"] = outcome.EndTime.Unix()
	msg.Data["extended"] = outcome.Extended
	if outcome.HighestBidderID != nil {
		msg.Data["highest_bidder_id"] = outcome.HighestBidderID.String()
	}
	return msg
}
