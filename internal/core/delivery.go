package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/whispr-im/whispr-server/internal/store"
)

// Delivery moves one chat message from sender to receiver: validate, persist,
// then fan out. The emitted event always carries the persisted message ID;
// if persistence fails the receiver sees nothing, so delivered messages are
// guaranteed to appear in the sender's history.
type Delivery struct {
	messages store.MessageStore
	users    store.UserStore
	hub      *Hub
	log      *zerolog.Logger
}

// NewDelivery constructs the message delivery pipeline.
func NewDelivery(messages store.MessageStore, users store.UserStore, hub *Hub, logger *zerolog.Logger) *Delivery {
	return &Delivery{
		messages: messages,
		users:    users,
		hub:      hub,
		log:      logger,
	}
}

// Send validates, persists and delivers one message, returning the persisted
// record. The sender identity is the connection's verified identity; the wire
// payload carries no sender field and any spoofed one would be ignored by the
// transport mapper.
//
// Send runs synchronously in the caller's connection handler, so messages
// from one connection are processed in the order received. There is no retry:
// a persistence failure is terminal for this attempt and the client decides
// whether to resend.
func (d *Delivery) Send(ctx context.Context, sender Identity, receiverID, content string) (*Message, error) {
	if receiverID == "" || content == "" {
		d.log.Warn().
			Str("sender_id", sender.UserID).
			Str("receiver_id", receiverID).
			Msg("rejected message with missing receiver or content")
		return nil, ErrBadRequest
	}

	if _, err := d.users.GetUserByID(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}

	saved, err := d.messages.CreateMessage(ctx, sender.UserID, receiverID, content)
	if err != nil {
		// Not persisted means not delivered: the receiver must never see a
		// message the sender's history will not show.
		d.log.Error().Err(err).
			Str("sender_id", sender.UserID).
			Str("receiver_id", receiverID).
			Msg("failed to persist message")
		return nil, fmt.Errorf("persist message: %w", err)
	}

	message := &Message{
		ID:             saved.ID,
		SenderID:       sender.UserID,
		SenderUsername: sender.Username,
		ReceiverID:     saved.ReceiverID,
		Content:        saved.Content,
		CreatedAt:      saved.CreatedAt,
	}

	d.hub.EmitToUser(receiverID, &Event{
		Kind:    EventDirectMessage,
		Message: message,
	})

	d.log.Debug().
		Str("message_id", saved.ID).
		Str("sender_id", sender.UserID).
		Str("receiver_id", receiverID).
		Msg("message delivered")

	return message, nil
}
