package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected acknowledges a successful connection, sent once after auth.
	EventConnected EventKind = iota
	// EventOnlineUsers carries the full online-user snapshot, sent to every
	// client on each connect and disconnect.
	EventOnlineUsers
	// EventDirectMessage delivers a persisted chat message to the receiver.
	EventDirectMessage
	// EventPeerTyping relays a typing signal to the addressed peer.
	EventPeerTyping
	// EventError notifies the sending client about a rejected request.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Identity Identity   // for EventConnected
	UserIDs  []string   // for EventOnlineUsers
	Message  *Message   // for EventDirectMessage
	Typing   *Typing    // for EventPeerTyping
	Error    *CoreError // for EventError
}

// Message is a fully-populated chat message as delivered to the receiver.
// ID and CreatedAt are always the persisted values; the core never emits a
// message carrying a client-side placeholder identifier.
type Message struct {
	ID             string
	SenderID       string
	SenderUsername string
	ReceiverID     string
	Content        string
	CreatedAt      time.Time
}

// Typing is a transient typing signal. It is never persisted and never
// assigned an identifier.
type Typing struct {
	UserID   string
	Username string
	IsTyping bool
}
