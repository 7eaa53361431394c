package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/reconcile"
)

type MessageType string

const (
	// Client to Server
	MessageTypeJoinTourney  MessageType = "JOIN_TOURNEY"
	MessageTypeLeaveTourney MessageType = "LEAVE_TOURNEY"
	MessageTypeSyncState    MessageType = "SYNC_STATE"

	// Server to Client
	MessageTypeStateSync MessageType = "STATE_SYNC"
	MessageTypeChange    MessageType = "CHANGE"
	MessageTypeError     MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type JoinTourneyPayload struct {
	TourneyID uint `json:"tourney_id"`
}

// Server to Client payloads

type StateSyncPayload struct {
	TourneyID uint            `json:"tourney_id"`
	State     reconcile.State `json:"state"`
	Viewers   int             `json:"viewers"`
}

// ChangePayload forwards one applied change-feed event.
type ChangePayload struct {
	TourneyID uint            `json:"tourney_id"`
	Table     string          `json:"table"`
	Kind      changefeed.Kind `json:"kind"`
	Row       json.RawMessage `json:"row"`
	At        time.Time       `json:"at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
