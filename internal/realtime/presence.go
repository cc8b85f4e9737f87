package realtime

import "sync"

// Presence tracks which users currently hold live connections. A user
// may have several concurrent sessions; they are online while at least
// one handle remains. The map is per-instance: cross-instance message
// delivery rides the Redis bridge instead, and a shared presence store
// is the known follow-up for horizontally scaled deployments.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{}
	owner  map[string]string
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]map[string]struct{}),
		owner:  make(map[string]string),
	}
}

// Connect registers a connection handle for a user. Registering the same
// handle twice is a no-op.
func (p *Presence) Connect(userID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.owner[connID]; ok {
		return
	}
	p.owner[connID] = userID
	if p.byUser[userID] == nil {
		p.byUser[userID] = make(map[string]struct{})
	}
	p.byUser[userID][connID] = struct{}{}
}

// Disconnect removes a handle from whichever user owns it and reports
// whether that user went offline as a result.
func (p *Presence) Disconnect(connID string) (userID string, offline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.owner[connID]
	if !ok {
		return "", false
	}
	delete(p.owner, connID)

	handles := p.byUser[userID]
	delete(handles, connID)
	if len(handles) == 0 {
		delete(p.byUser, userID)
		return userID, true
	}
	return userID, false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}

func (p *Presence) AnyOnline(userIDs []string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, id := range userIDs {
		if len(p.byUser[id]) > 0 {
			return true
		}
	}
	return false
}

// OnlineUsers is the query surface for presence indicators.
func (p *Presence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, 0, len(p.byUser))
	for id := range p.byUser {
		out = append(out, id)
	}
	return out
}
