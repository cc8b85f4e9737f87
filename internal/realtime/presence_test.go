package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceConnectDisconnect(t *testing.T) {
	p := NewPresence()

	assert.False(t, p.IsOnline("alice"))

	p.Connect("alice", "conn-1")
	assert.True(t, p.IsOnline("alice"))

	userID, offline := p.Disconnect("conn-1")
	assert.Equal(t, "alice", userID)
	assert.True(t, offline)
	assert.False(t, p.IsOnline("alice"))
}

func TestPresenceConnectIsIdempotent(t *testing.T) {
	p := NewPresence()

	p.Connect("alice", "conn-1")
	p.Connect("alice", "conn-1")

	_, offline := p.Disconnect("conn-1")
	assert.True(t, offline, "duplicate connect must not register a second handle")
}

func TestPresenceMultipleSessions(t *testing.T) {
	p := NewPresence()

	p.Connect("alice", "conn-1")
	p.Connect("alice", "conn-2")

	_, offline := p.Disconnect("conn-1")
	assert.False(t, offline)
	assert.True(t, p.IsOnline("alice"), "user stays online while any handle remains")

	_, offline = p.Disconnect("conn-2")
	assert.True(t, offline)
}

func TestPresenceDisconnectUnknownHandle(t *testing.T) {
	p := NewPresence()

	userID, offline := p.Disconnect("never-connected")
	assert.Empty(t, userID)
	assert.False(t, offline)
}

func TestPresenceAnyOnline(t *testing.T) {
	p := NewPresence()
	p.Connect("bob", "conn-1")

	assert.True(t, p.AnyOnline([]string{"alice", "bob"}))
	assert.False(t, p.AnyOnline([]string{"alice", "carol"}))
	assert.False(t, p.AnyOnline(nil))
}

func TestPresenceOnlineUsers(t *testing.T) {
	p := NewPresence()
	p.Connect("alice", "conn-1")
	p.Connect("bob", "conn-2")
	p.Connect("bob", "conn-3")

	assert.ElementsMatch(t, []string{"alice", "bob"}, p.OnlineUsers())
}
