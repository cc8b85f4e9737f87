package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestHub runs a hub without a Redis bridge, which exercises the
// single-instance local dispatch path.
func newTestHub(t *testing.T) (*Hub, *Presence) {
	t.Helper()
	presence := NewPresence()
	hub := NewHub(nil, presence, zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	return hub, presence
}

func newTestClient(hub *Hub, id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		hub:    hub,
		log:    zap.NewNop(),
		send:   make(chan []byte, 256),
	}
}

func recvFrame(t *testing.T, c *Client) outboundFrame {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var frame outboundFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return outboundFrame{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected frame: %s", raw)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegisterJoinsPersonalChannel(t *testing.T) {
	hub, presence := newTestHub(t)

	alice := newTestClient(hub, "conn-a", "alice")
	hub.registerClient(alice)

	ready := recvFrame(t, alice)
	assert.Equal(t, EventConnectionReady, ready.Event)

	var readyData map[string]string
	require.NoError(t, json.Unmarshal(ready.Data, &readyData))
	assert.Equal(t, "conn-a", readyData["connectionId"])
	assert.True(t, presence.IsOnline("alice"))

	hub.ToUser("alice", "conversation:updated", map[string]int{"unreadCount": 3})
	frame := recvFrame(t, alice)
	assert.Equal(t, "conversation:updated", frame.Event)
}

func TestConversationRoomFanOutExcludesOrigin(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := newTestClient(hub, "conn-a", "alice")
	bob := newTestClient(hub, "conn-b", "bob")
	hub.registerClient(alice)
	hub.registerClient(bob)
	recvFrame(t, alice) // ready
	recvFrame(t, bob)   // ready

	hub.joinRoom(alice, "conv1")
	hub.joinRoom(bob, "conv1")

	hub.ToConversation("conv1", "conn-a", EventMessageNew, map[string]string{"text": "hi"})

	frame := recvFrame(t, bob)
	assert.Equal(t, EventMessageNew, frame.Event)
	assertNoFrame(t, alice)
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub, _ := newTestHub(t)

	bob := newTestClient(hub, "conn-b", "bob")
	hub.registerClient(bob)
	recvFrame(t, bob)

	hub.joinRoom(bob, "conv1")
	hub.ToConversation("conv1", "", EventMessageNew, "one")
	assert.Equal(t, EventMessageNew, recvFrame(t, bob).Event)

	hub.leaveRoom(bob, "conv1")
	hub.ToConversation("conv1", "", EventMessageNew, "two")
	assertNoFrame(t, bob)

	// Leaving a room never joined is safe.
	hub.leaveRoom(bob, "conv-never-joined")
}

func TestJoinedRoomIsSilentWithoutBroadcasts(t *testing.T) {
	hub, _ := newTestHub(t)

	// Joining a room is not an authorization check: an outsider can
	// join, but nothing is ever published there on their behalf, so the
	// channel stays silent.
	mallory := newTestClient(hub, "conn-m", "mallory")
	hub.registerClient(mallory)
	recvFrame(t, mallory)

	hub.joinRoom(mallory, "someone-elses-conv")
	assertNoFrame(t, mallory)

	hub.ToConversation("a-different-conv", "", EventMessageNew, "secret")
	assertNoFrame(t, mallory)
}

func TestFanOutPreservesPerRoomOrder(t *testing.T) {
	hub, _ := newTestHub(t)

	bob := newTestClient(hub, "conn-b", "bob")
	hub.registerClient(bob)
	recvFrame(t, bob)
	hub.joinRoom(bob, "conv1")

	const n = 50
	for i := 0; i < n; i++ {
		hub.ToConversation("conv1", "", EventMessageNew, i)
	}

	for i := 0; i < n; i++ {
		frame := recvFrame(t, bob)
		var got int
		require.NoError(t, json.Unmarshal(frame.Data, &got))
		assert.Equal(t, i, got)
	}
}

func TestRelayEchoesToRoomExcludingSender(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := newTestClient(hub, "conn-a", "alice")
	bob := newTestClient(hub, "conn-b", "bob")
	hub.registerClient(alice)
	hub.registerClient(bob)
	recvFrame(t, alice)
	recvFrame(t, bob)

	hub.joinRoom(alice, "conv1")
	hub.joinRoom(bob, "conv1")

	payload := json.RawMessage(`{"text":"legacy"}`)
	hub.relay(alice, "conv1", payload)

	frame := recvFrame(t, bob)
	assert.Equal(t, EventMessageNew, frame.Event)
	assert.JSONEq(t, `{"text":"legacy"}`, string(frame.Data))
	assertNoFrame(t, alice)
}

func TestUnregisterCleansUpPresenceAndRooms(t *testing.T) {
	hub, presence := newTestHub(t)

	bob := newTestClient(hub, "conn-b", "bob")
	hub.registerClient(bob)
	recvFrame(t, bob)
	hub.joinRoom(bob, "conv1")

	hub.unregisterClient(bob)

	// The send channel closes once the hub forgets the connection.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-bob.send:
			if !ok {
				assert.False(t, presence.IsOnline("bob"))
				return
			}
		case <-deadline:
			t.Fatal("send channel never closed")
		}
	}
}

func TestShutdownClosesClients(t *testing.T) {
	presence := NewPresence()
	hub := NewHub(nil, presence, zap.NewNop())
	go hub.Run()

	bob := newTestClient(hub, "conn-b", "bob")
	hub.registerClient(bob)
	recvFrame(t, bob)

	hub.Shutdown()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-bob.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel never closed on shutdown")
		}
	}
}
