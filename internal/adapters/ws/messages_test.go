package ws

import (
	"encoding/json"
	"testing"

	"marketplace-bidding-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func rawMessage(t *testing.T, msgType MessageType, auctionID *uuid.UUID, data map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(ClientMessage{Type: msgType, AuctionID: auctionID, Data: data})
	require.NoError(t, err)
	return payload
}

func TestParseClientMessage(t *testing.T) {
	auctionID := uuid.New()

	msg, err := ParseClientMessage(rawMessage(t, MessageTypePlaceMaxBid, &auctionID, map[string]interface{}{
		"max_amount": "105.50",
	}))
	require.NoError(t, err)
	require.Equal(t, MessageTypePlaceMaxBid, msg.Type)
	require.Equal(t, auctionID, *msg.AuctionID)

	_, err = ParseClientMessage([]byte(`{not json`))
	require.Error(t, err)

	_, err = ParseClientMessage([]byte(`{"auction_id":null}`))
	require.ErrorIs(t, err, shared.ErrMessageTypeRequired)
}

func TestClientMessage_Validate(t *testing.T) {
	auctionID := uuid.New()
	bidderID := uuid.New()

	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr error
	}{
		{
			name: "valid_place_max_bid",
			msg: ClientMessage{
				Type:      MessageTypePlaceMaxBid,
				AuctionID: &auctionID,
				Data:      map[string]interface{}{"max_amount": "150"},
			},
		},
		{
			name: "place_max_bid_numeric_amount",
			msg: ClientMessage{
				Type:      MessageTypePlaceMaxBid,
				AuctionID: &auctionID,
				Data:      map[string]interface{}{"max_amount": 150.0},
			},
		},
		{
			name: "place_max_bid_missing_auction",
			msg: ClientMessage{
				Type: MessageTypePlaceMaxBid,
				Data: map[string]interface{}{"max_amount": "150"},
			},
			wantErr: shared.ErrAuctionIDRequired,
		},
		{
			name: "place_max_bid_bad_amount",
			msg: ClientMessage{
				Type:      MessageTypePlaceMaxBid,
				AuctionID: &auctionID,
				Data:      map[string]interface{}{"max_amount": "not-a-number"},
			},
			wantErr: shared.ErrInvalidAmount,
		},
		{
			name: "place_max_bid_negative_amount",
			msg: ClientMessage{
				Type:      MessageTypePlaceMaxBid,
				AuctionID: &auctionID,
				Data:      map[string]interface{}{"max_amount": "-5"},
			},
			wantErr: shared.ErrInvalidAmount,
		},
		{
			name: "kick_requires_target_bidder",
			msg: ClientMessage{
				Type:      MessageTypeKickBidder,
				AuctionID: &auctionID,
				Data:      map[string]interface{}{},
			},
			wantErr: shared.ErrBidderIDRequired,
		},
		{
			name: "valid_kick",
			msg: ClientMessage{
				Type:      MessageTypeKickBidder,
				AuctionID: &auctionID,
				Data:      map[string]interface{}{"bidder_id": bidderID.String(), "reason": "shill"},
			},
		},
		{
			name: "valid_watch",
			msg: ClientMessage{
				Type:      MessageTypeWatch,
				AuctionID: &auctionID,
			},
		},
		{
			name: "ping_needs_nothing",
			msg:  ClientMessage{Type: MessageTypePing},
		},
		{
			name:    "unknown_type",
			msg:     ClientMessage{Type: "teleport", AuctionID: &auctionID},
			wantErr: shared.ErrUnknownMessageType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClientMessage_MaxAmountKeepsPrecision(t *testing.T) {
	auctionID := uuid.New()
	msg := ClientMessage{
		Type:      MessageTypePlaceMaxBid,
		AuctionID: &auctionID,
		Data:      map[string]interface{}{"max_amount": "19.99"},
	}

	amount, err := msg.MaxAmount()
	require.NoError(t, err)
	require.Equal(t, "19.99", amount.String())
}
