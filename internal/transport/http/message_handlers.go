package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whispr-im/whispr-server/internal/core"
	"github.com/whispr-im/whispr-server/internal/store"
)

// MessageHandlers provides HTTP handlers for sending messages and reading
// message history.
type MessageHandlers struct {
	store    store.MessageStore
	delivery *core.Delivery
	log      *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.MessageStore, delivery *core.Delivery, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:    st,
		delivery: delivery,
		log:      logger,
	}
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	ID         string `json:"_id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
}

// SendMessageRequest is the REST payload for sending a direct message. The
// sender is always the authenticated caller.
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// SendMessage persists a message and fans it out to the receiver's live
// connections, same as the WebSocket path.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	currentUserID := c.GetString(ContextKeyUserID)
	if currentUserID == "" {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "receiverId and content are required"})
		return
	}

	sender := core.Identity{
		UserID:   currentUserID,
		Username: c.GetString(ContextKeyUsername),
	}

	saved, err := h.delivery.Send(c.Request.Context(), sender, req.ReceiverID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBadRequest):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "receiverId and content are required"})
		case errors.Is(err, core.ErrReceiverNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "receiver not found"})
		default:
			h.log.Error().Err(err).
				Str("sender_id", currentUserID).
				Str("receiver_id", req.ReceiverID).
				Msg("failed to send message")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{
		ID:         saved.ID,
		SenderID:   saved.SenderID,
		ReceiverID: saved.ReceiverID,
		Content:    saved.Content,
		CreatedAt:  saved.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

// ListConversation returns the conversation between the caller and another
// user, oldest first.
// GET /api/messages/:userId
func (h *MessageHandlers) ListConversation(c *gin.Context) {
	otherUserID := c.Param("userId")
	if otherUserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id is required"})
		return
	}

	currentUserID := c.GetString(ContextKeyUserID)
	if currentUserID == "" {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	messages, err := h.store.ListBetween(c.Request.Context(), currentUserID, otherUserID)
	if err != nil {
		h.log.Error().Err(err).
			Str("user_id", currentUserID).
			Str("other_user_id", otherUserID).
			Msg("failed to list conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, MessageResponse{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}

	c.JSON(http.StatusOK, response)
}
