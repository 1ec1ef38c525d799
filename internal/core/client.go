package core

// Identity is the authenticated user bound to a connection. It is resolved
// once from the connection credential and never changes for the life of the
// connection; inbound payloads are always attributed to it, regardless of any
// sender field a client might supply.
type Identity struct {
	UserID   string
	Username string
}

// Client is one live connection as seen by the core layer.
type Client struct {
	ConnID   string
	Identity Identity
	Events   chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(connID string, identity Identity) *Client {
	return &Client{
		ConnID:   connID,
		Identity: identity,
		Events:   make(chan *Event, 16),
	}
}
