package app

import "sync"

// ConnectionRegistry at most one live client per user
type ConnectionRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewConnectionRegistry create an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{clients: make(map[string]*Client)}
}

// Register binds userID to c and returns the client it replaced, if any.
// The replaced client is not closed or notified.
func (r *ConnectionRegistry) Register(userID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.clients[userID]
	r.clients[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes userID; no-op if absent
func (r *ConnectionRegistry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, userID)
}

// UnregisterIf removes userID only while it is still bound to c
func (r *ConnectionRegistry) UnregisterIf(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[userID] != c {
		return false
	}
	delete(r.clients, userID)
	return true
}

// Lookup current client of userID
func (r *ConnectionRegistry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

// Count number of connected users
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
