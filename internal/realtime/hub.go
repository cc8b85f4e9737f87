package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// eventsChannel is the Redis pub/sub channel every instance publishes to
// and subscribes from, so a broadcast reaches connections held anywhere.
const eventsChannel = "chatwire:events"

type joinRequest struct {
	client *Client
	room   string
	leave  bool
}

// Hub owns room membership and fans events out to connected clients.
// Everything mutable is confined to the single Run goroutine; other
// goroutines talk to it through channels. With a Redis client the hub is
// instance-agnostic: publishes cross Redis and come back through the
// subscriber, preserving per-channel order. With a nil Redis client the
// hub short-circuits locally, which is only valid for a single-instance
// deployment.
type Hub struct {
	log      *zap.Logger
	redis    *redis.Client
	presence *Presence

	register   chan *Client
	unregister chan *Client
	joins      chan joinRequest
	inbound    chan envelope
	done       chan struct{}

	rooms      map[string]map[*Client]struct{}
	membership map[*Client]map[string]struct{}
}

func NewHub(redisClient *redis.Client, presence *Presence, log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		redis:      redisClient,
		presence:   presence,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan joinRequest),
		inbound:    make(chan envelope, 64),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		membership: make(map[*Client]map[string]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addToRoom(client, personalRoom(client.UserID))
			h.presence.Connect(client.UserID, client.ID)
			h.sendReady(client)

		case client := <-h.unregister:
			if _, ok := h.membership[client]; ok {
				h.removeClient(client)
			}

		case req := <-h.joins:
			if req.leave {
				h.removeFromRoom(req.client, req.room)
			} else {
				h.addToRoom(req.client, req.room)
			}

		case env := <-h.inbound:
			h.fanOut(env)

		case <-h.done:
			for client := range h.membership {
				h.removeClient(client)
			}
			return
		}
	}
}

// Shutdown stops the Run loop and closes every connection's send
// channel.
func (h *Hub) Shutdown() {
	close(h.done)
}

// ToConversation broadcasts an event to everyone in a conversation's
// room, skipping the originating connection. Failures are logged and
// swallowed; a broadcast must never fail the write that triggered it.
func (h *Hub) ToConversation(conversationID, excludeConnID, event string, payload any) {
	h.publish(conversationRoom(conversationID), excludeConnID, event, payload)
}

// ToUser notifies every session on a user's personal channel.
func (h *Hub) ToUser(userID, event string, payload any) {
	h.publish(personalRoom(userID), "", event, payload)
}

func (h *Hub) publish(room, exclude, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("marshal broadcast payload", zap.String("room", room), zap.Error(err))
		return
	}
	h.dispatch(envelope{Room: room, Event: event, Exclude: exclude, Data: data})
}

func (h *Hub) dispatch(env envelope) {
	if h.redis == nil {
		select {
		case h.inbound <- env:
		case <-h.done:
		}
		return
	}

	raw, err := json.Marshal(env)
	if err != nil {
		h.log.Warn("marshal envelope", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.redis.Publish(ctx, eventsChannel, raw).Err(); err != nil {
		h.log.Warn("redis publish", zap.String("room", env.Room), zap.Error(err))
	}
}

// SubscribeToRedis feeds events published by any instance into the local
// fan-out loop. Runs until ctx is cancelled.
func (h *Hub) SubscribeToRedis(ctx context.Context) {
	if h.redis == nil {
		return
	}

	pubsub := h.redis.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Warn("decode envelope", zap.Error(err))
				continue
			}
			select {
			case h.inbound <- env:
			case <-ctx.Done():
				return
			case <-h.done:
				return
			}
		case <-ctx.Done():
			return
		case <-h.done:
			return
		}
	}
}

// registerClient and friends guard channel sends with done so client
// goroutines cannot block once the hub has shut down.
func (h *Hub) registerClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) joinRoom(c *Client, conversationID string) {
	select {
	case h.joins <- joinRequest{client: c, room: conversationRoom(conversationID)}:
	case <-h.done:
	}
}

func (h *Hub) leaveRoom(c *Client, conversationID string) {
	select {
	case h.joins <- joinRequest{client: c, room: conversationRoom(conversationID), leave: true}:
	case <-h.done:
	}
}

// relay is the legacy echo path: a client-built message:new payload is
// rebroadcast to the conversation room, excluding the sender's socket.
func (h *Hub) relay(c *Client, conversationID string, payload json.RawMessage) {
	h.dispatch(envelope{
		Room:    conversationRoom(conversationID),
		Event:   EventMessageNew,
		Exclude: c.ID,
		Data:    payload,
	})
}

func (h *Hub) fanOut(env envelope) {
	frame, err := json.Marshal(outboundFrame{Event: env.Event, Data: env.Data})
	if err != nil {
		h.log.Warn("marshal frame", zap.Error(err))
		return
	}

	for client := range h.rooms[env.Room] {
		if client.ID == env.Exclude {
			continue
		}
		select {
		case client.send <- frame:
		default:
			// Slow consumer: drop the connection rather than stall
			// the room.
			h.removeClient(client)
		}
	}
}

func (h *Hub) sendReady(c *Client) {
	data, _ := json.Marshal(map[string]string{"connectionId": c.ID})
	frame, _ := json.Marshal(outboundFrame{Event: EventConnectionReady, Data: data})
	select {
	case c.send <- frame:
	default:
	}
}

func (h *Hub) addToRoom(c *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}

	if h.membership[c] == nil {
		h.membership[c] = make(map[string]struct{})
	}
	h.membership[c][room] = struct{}{}
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.membership[c]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) removeClient(c *Client) {
	for room := range h.membership[c] {
		if clients, ok := h.rooms[room]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.membership, c)
	h.presence.Disconnect(c.ID)
	close(c.send)
}
