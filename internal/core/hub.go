package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub routes events to the right connections. It owns the per-user rooms and
// the presence registry; transport handlers register a client exactly once
// after authentication and unregister it on disconnect.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]*Room // userID -> room
	presence *Presence
	log      *zerolog.Logger
}

// NewHub creates a hub with an empty presence registry.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]*Room),
		presence: NewPresence(),
		log:      logger,
	}
}

// Register binds a client to its user's room, records presence, acknowledges
// the connection, and broadcasts the new online snapshot to every client.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.Identity.UserID]
	if !ok {
		room = NewRoom(client.Identity.UserID)
		h.rooms[client.Identity.UserID] = room
	}
	room.AddClient(client)
	snapshot := h.presence.Connect(client.Identity.UserID, client.ConnID)
	client.Events <- &Event{Kind: EventConnected, Identity: client.Identity}
	// Snapshots are broadcast inside the critical section so clients
	// always receive them in state order. Room.Broadcast never blocks,
	// so holding the lock here is safe.
	h.broadcastLocked(&Event{Kind: EventOnlineUsers, UserIDs: snapshot})
	h.mu.Unlock()

	h.log.Info().
		Str("user_id", client.Identity.UserID).
		Str("conn_id", client.ConnID).
		Msg("client registered")
}

// Unregister removes a client from its room and presence. Idempotent: a
// second call for the same client is a no-op, so disconnect cleanup is safe
// to run from multiple defer paths.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	removed := false
	if room, ok := h.rooms[client.Identity.UserID]; ok {
		removed = room.RemoveClient(client)
		if room.Empty() {
			delete(h.rooms, client.Identity.UserID)
		}
	}
	h.presence.Disconnect(client.ConnID)
	if removed {
		h.broadcastLocked(&Event{Kind: EventOnlineUsers, UserIDs: h.presence.Snapshot()})
	}
	h.mu.Unlock()

	if !removed {
		return
	}

	h.log.Info().
		Str("user_id", client.Identity.UserID).
		Str("conn_id", client.ConnID).
		Msg("client unregistered")
}

// EmitToUser delivers an event to every live connection of a user. If the
// user is offline the event is silently dropped; delivery is best-effort,
// never queued.
func (h *Hub) EmitToUser(userID string, event *Event) {
	h.mu.Lock()
	room, ok := h.rooms[userID]
	if ok {
		room.Broadcast(event)
	}
	h.mu.Unlock()

	if !ok {
		h.log.Debug().Str("user_id", userID).Msg("receiver offline, event dropped")
	}
}

// RelayTyping forwards a transient typing signal to the receiver's room only.
func (h *Hub) RelayTyping(sender Identity, receiverID string, isTyping bool) {
	if receiverID == "" {
		return
	}
	h.EmitToUser(receiverID, &Event{
		Kind: EventPeerTyping,
		Typing: &Typing{
			UserID:   sender.UserID,
			Username: sender.Username,
			IsTyping: isTyping,
		},
	})
}

// OnlineUsers returns the current online snapshot.
func (h *Hub) OnlineUsers() []string {
	return h.presence.Snapshot()
}

// broadcast sends an event to every connected client.
func (h *Hub) broadcast(event *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(event)
}

// broadcastLocked fans an event out to every room. Callers must hold h.mu.
func (h *Hub) broadcastLocked(event *Event) {
	for _, room := range h.rooms {
		room.Broadcast(event)
	}
}
