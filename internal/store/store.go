package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message represents a persisted direct message between two users.
// ID and CreatedAt are assigned by the store on creation and are the
// authoritative values clients use for deduplication.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches for users by username substring.
	SearchUsers(ctx context.Context, query string) ([]*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a direct message and returns the stored row
	// with server-assigned ID and CreatedAt.
	CreateMessage(ctx context.Context, senderID, receiverID, content string) (*Message, error)

	// ListBetween returns the conversation between two users, oldest first.
	ListBetween(ctx context.Context, userA, userB string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
