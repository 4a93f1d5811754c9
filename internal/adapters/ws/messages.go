package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypePlaceMaxBid      MessageType = "place_max_bid"
	MessageTypeBuyNow           MessageType = "buy_now"
	MessageTypeKickBidder       MessageType = "kick_bidder"
	MessageTypeApproveRequest   MessageType = "approve_request"
	MessageTypeRejectRequest    MessageType = "reject_request"
	MessageTypeGetAuction       MessageType = "get_auction"
	MessageTypeGetTimeline      MessageType = "get_timeline"
	MessageTypeCheckEligibility MessageType = "check_eligibility"
	MessageTypeWatch            MessageType = "watch"
	MessageTypeUnwatch          MessageType = "unwatch"
	MessageTypePing             MessageType = "ping"

	// Server to Client message types
	MessageTypeBidAccepted  MessageType = "bid_accepted"
	MessageTypeAuctionState MessageType = "auction_state"
	MessageTypeEligibility  MessageType = "eligibility"
	MessageTypeTimeline     MessageType = "timeline"
	MessageTypeNotice       MessageType = "notice"
	MessageTypeError        MessageType = "error"
	MessageTypePong         MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, auctionID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		AuctionID: auctionID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}

// MaxAmount extracts the submitted ceiling; both JSON numbers and
// strings are accepted, strings keep exact decimal precision.
func (m *ClientMessage) MaxAmount() (decimal.Decimal, error) {
	switch v := m.Data["max_amount"].(type) {
	case string:
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, shared.ErrInvalidAmount
		}
		return amount, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, shared.ErrInvalidAmount
	}
}

// TargetBidder extracts the bidder another party is acting on.
func (m *ClientMessage) TargetBidder() (uuid.UUID, error) {
	raw, ok := m.Data["bidder_id"].(string)
	if !ok {
		return uuid.Nil, shared.ErrBidderIDRequired
	}
	bidderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.ErrBidderIDRequired
	}
	return bidderID, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypePlaceMaxBid:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
		amount, err := m.MaxAmount()
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return shared.ErrInvalidAmount
		}
	case MessageTypeKickBidder, MessageTypeApproveRequest, MessageTypeRejectRequest:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
		if _, err := m.TargetBidder(); err != nil {
			return err
		}
	case MessageTypeBuyNow, MessageTypeGetAuction, MessageTypeGetTimeline,
		MessageTypeCheckEligibility, MessageTypeWatch, MessageTypeUnwatch:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}
