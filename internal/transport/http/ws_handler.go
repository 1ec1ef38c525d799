package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/whispr-im/whispr-server/internal/auth"
	"github.com/whispr-im/whispr-server/internal/core"
	"github.com/whispr-im/whispr-server/internal/proto"
	"github.com/whispr-im/whispr-server/internal/utils"
)

// WSHandler authenticates connections, upgrades them and bridges them to the
// core hub. Authentication happens before the upgrade: a request without a
// valid credential is answered 401 and never reaches the hub, so no
// application event can originate from an unauthenticated connection.
type WSHandler struct {
	hub      *core.Hub
	delivery *core.Delivery
	auth     *auth.Service
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, delivery *core.Delivery, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, delivery: delivery, auth: authService, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	identity, err := h.auth.VerifyConnection(ctx, connectionToken(r))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws connection rejected")
		status := stdhttp.StatusUnauthorized
		if !errors.Is(err, auth.ErrMissingCredential) &&
			!errors.Is(err, auth.ErrInvalidCredential) &&
			!errors.Is(err, auth.ErrExpiredCredential) {
			status = stdhttp.StatusInternalServerError
		}
		stdhttp.Error(w, stdhttp.StatusText(status), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(utils.NewID(), identity)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ConnID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// connectionToken extracts the handshake credential from the query string or
// the Authorization header.
func connectionToken(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// readLoop processes inbound events sequentially, preserving per-connection
// ordering. A send awaiting persistence stalls only this connection.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		protoErr, err := h.dispatch(ctx, client, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ConnID).Msg("failed to handle inbound")
			return err
		}
		if protoErr != nil {
			if err := h.sendErrorAck(ctx, client, protoErr); err != nil {
				return err
			}
		}
	}
}

// sendErrorAck queues an error ack on the client's event channel so all
// socket writes stay on the write loop. The channel send must not outlive the
// connection: once the context is cancelled the write loop no longer drains,
// and a bare send would block this goroutine forever.
func (h *WSHandler) sendErrorAck(ctx context.Context, client *core.Client, protoErr *proto.Error) error {
	event := &core.Event{
		Kind:  core.EventError,
		Error: &core.CoreError{Code: protoErr.Code, Message: protoErr.Msg},
	}
	select {
	case client.Events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch executes one inbound event on behalf of the connection's verified
// identity. Returns a protocol error for client mistakes, or a hard error
// that tears the connection down.
func (h *WSHandler) dispatch(ctx context.Context, client *core.Client, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, err
		}
		_, err := h.delivery.Send(ctx, client.Identity, msg.ReceiverID, msg.Content)
		return mapSendError(err), nil

	case proto.InboundTypeStartTyping, proto.InboundTypeStopTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, err
		}
		if typing.ReceiverID == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "receiverId is required"}, nil
		}
		h.hub.RelayTyping(client.Identity, typing.ReceiverID, inbound.Type == proto.InboundTypeStartTyping)
		return nil, nil

	default:
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}, nil
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ConnID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
