package core

import "sync"

// Presence tracks which users are currently reachable. A user may hold more
// than one live connection (multi-device); the user stays online until the
// last of their connections disconnects.
//
// All mutations go through one mutex so that two connects, or a connect racing
// a disconnect for the same user, can never corrupt the membership set.
type Presence struct {
	mu     sync.RWMutex
	users  map[string]map[string]struct{} // userID -> set of connIDs
	owners map[string]string              // connID -> userID
}

// NewPresence constructs an empty presence registry.
func NewPresence() *Presence {
	return &Presence{
		users:  make(map[string]map[string]struct{}),
		owners: make(map[string]string),
	}
}

// Connect records a connection for a user and returns the updated snapshot.
func (p *Presence) Connect(userID, connID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		p.users[userID] = conns
	}
	conns[connID] = struct{}{}
	p.owners[connID] = userID

	return p.snapshotLocked()
}

// Disconnect removes a connection from whichever user owns it. It is
// idempotent: removing an unknown connection is a no-op. Returns the owning
// user ID and whether the user transitioned to offline.
func (p *Presence) Disconnect(connID string) (userID string, wentOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.owners[connID]
	if !ok {
		return "", false
	}
	delete(p.owners, connID)

	conns := p.users[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(p.users, userID)
		return userID, true
	}
	return userID, false
}

// Snapshot returns the current set of online user IDs, order-independent.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Online reports whether a user has at least one live connection.
func (p *Presence) Online(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users[userID]) > 0
}

func (p *Presence) snapshotLocked() []string {
	ids := make([]string, 0, len(p.users))
	for id := range p.users {
		ids = append(ids, id)
	}
	return ids
}
