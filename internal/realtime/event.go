package realtime

import "encoding/json"

// Client-facing protocol events. join/leave manage conversation rooms;
// message:new inbound is the legacy client echo path, relayed verbatim
// to the room. connection:ready hands the client its connection id so
// HTTP sends can name their originating socket.
const (
	EventJoin            = "conversation:join"
	EventLeave           = "conversation:leave"
	EventMessageNew      = "message:new"
	EventConnectionReady = "connection:ready"
)

// inboundFrame is what a connected client sends over the socket.
type inboundFrame struct {
	Event          string          `json:"event"`
	ConversationID string          `json:"conversationId"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// outboundFrame is what the hub writes to sockets.
type outboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// envelope crosses the Redis channel between instances. Exclude carries
// the originating connection id so the sender's own socket is skipped;
// only the instance holding that connection acts on it.
type envelope struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Exclude string          `json:"exclude,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func conversationRoom(conversationID string) string { return "conv:" + conversationID }
func personalRoom(userID string) string             { return "user:" + userID }
