package websocket

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/BelikanM/cub/internal/changefeed"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}
	if str == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types on the realtime channel
const (
	// Client to server
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeHeartbeat   = "heartbeat"
	MessageTypePing        = "ping"

	// Server to client
	MessageTypeSubscribed = "subscribed"
	MessageTypeChange     = "change"
	MessageTypePong       = "pong"
	MessageTypeError      = "error"
	MessageTypeSystem     = "system"
)

// Error codes carried in error payloads
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeRateLimited  = "RATE_LIMITED"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a client chosen identifier echoed in replies
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	m := NewMessage(msgType, payload)
	m.ReplyTo = original.ID
	return m
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Incoming payloads are decoded as generic maps
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// SubscribePayload opens or closes a channel. Filter has the form
// "column=eq.value" and may be empty.
type SubscribePayload struct {
	Channel string `json:"channel"`
	Table   string `json:"table"`
	Filter  string `json:"filter,omitempty"`
}

// SubscribedPayload acknowledges a subscribe
type SubscribedPayload struct {
	Channel string `json:"channel"`
	Table   string `json:"table"`
	Filter  string `json:"filter,omitempty"`
}

// ChangePayload carries one committed write to a channel
type ChangePayload struct {
	Channel         string           `json:"channel"`
	Table           string           `json:"table"`
	Event           changefeed.Event `json:"event"`
	New             map[string]any   `json:"new,omitempty"`
	Old             map[string]any   `json:"old,omitempty"`
	CommitTimestamp time.Time        `json:"commit_timestamp"`
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time,omitempty"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms,omitempty"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
