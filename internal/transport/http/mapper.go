package http

import (
	"errors"

	"github.com/whispr-im/whispr-server/internal/core"
	"github.com/whispr-im/whispr-server/internal/proto"
)

// mapSendError converts a delivery error into the error ack sent back to the
// sender. A nil result means the send was accepted.
func mapSendError(err error) *proto.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrBadRequest):
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "receiverId and content are required"}
	case errors.Is(err, core.ErrReceiverNotFound):
		return &proto.Error{Code: core.ErrCodeNotFound, Msg: "receiver not found"}
	default:
		// Persistence failed; the message was not delivered and the client
		// may retry manually.
		return &proto.Error{Code: core.ErrCodeSendFailed, Msg: "message could not be saved"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnected:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventConnected,
			Data: proto.ConnectedData{
				UserID:   event.Identity.UserID,
				Username: event.Identity.Username,
			},
		}
	case core.EventOnlineUsers:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOnlineUsers,
			Data:  event.UserIDs,
		}
	case core.EventDirectMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data: proto.MessageData{
				ID: event.Message.ID,
				Sender: proto.MessageSender{
					ID:       event.Message.SenderID,
					Username: event.Message.SenderUsername,
				},
				ReceiverID: event.Message.ReceiverID,
				Content:    event.Message.Content,
				CreatedAt:  event.Message.CreatedAt,
			},
		}
	case core.EventPeerTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTyping,
			Data: proto.TypingEventData{
				UserID:   event.Typing.UserID,
				Username: event.Typing.Username,
				IsTyping: event.Typing.IsTyping,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
