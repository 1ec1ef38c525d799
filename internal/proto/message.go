package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSendMessage = "sendMessage"
	InboundTypeStartTyping = "startTyping"
	InboundTypeStopTyping  = "stopTyping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventConnected   = "connected"
	EventOnlineUsers = "updateOnlineUsers"
	EventMessage     = "receiveMessage"
	EventTyping      = "userTyping"
)

// SendMessageData is a direct message from the client. There is deliberately
// no sender field: the sender is always the connection's verified identity.
type SendMessageData struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// TypingData addresses a typing signal to one peer.
type TypingData struct {
	ReceiverID string `json:"receiverId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ConnectedData acknowledges a successful connection.
type ConnectedData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// MessageSender identifies the author of a delivered message.
type MessageSender struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// MessageData is a delivered chat message. ID is always the persisted,
// server-assigned identifier, usable by clients for deduplication.
type MessageData struct {
	ID         string        `json:"_id"`
	Sender     MessageSender `json:"sender"`
	ReceiverID string        `json:"receiverId"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// TypingEventData notifies a peer of typing state, last-write-wins.
type TypingEventData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
