package assignment

import "sync"

// Cursor remembers the last-assigned agent per tenant for round-robin.
// Best-effort only: concurrent assignments may read the same value.
// The interface exists so a multi-instance deployment can back it with a
// shared store without touching the engine.
type Cursor interface {
	Last(tenantID string) string
	Remember(tenantID, agentID string)
}

type memoryCursor struct {
	mu   sync.Mutex
	last map[string]string
}

func NewMemoryCursor() Cursor {
	return &memoryCursor{
		last: make(map[string]string),
	}
}

func (c *memoryCursor) Last(tenantID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[tenantID]
}

func (c *memoryCursor) Remember(tenantID, agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[tenantID] = agentID
}
