package chat

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Conversation struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name,omitempty" json:"name,omitempty"`
	IsGroup bool               `bson:"isGroup" json:"isGroup"`
	AdminID string             `bson:"adminId,omitempty" json:"adminId,omitempty"`
	Members []string           `bson:"members" json:"members"`

	// DirectKey is the normalized sorted member pair for non-group
	// conversations. A unique sparse index on it is what de-duplicates
	// concurrent direct-conversation creation.
	DirectKey string `bson:"directKey,omitempty" json:"-"`

	LastMessage   *LastMessage `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time   `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	UnreadCounts  UnreadCounts `bson:"unreadCounts" json:"unreadCounts"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// LastMessage is the denormalized snapshot used for list rendering,
// so listing conversations never joins against the messages collection.
type LastMessage struct {
	Text         string    `bson:"text" json:"text"`
	SenderID     string    `bson:"senderId" json:"senderId"`
	SenderName   string    `bson:"senderName" json:"senderName"`
	SenderAvatar string    `bson:"senderAvatar" json:"senderAvatar"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversationId" json:"conversationId"`
	SenderID       string             `bson:"senderId" json:"senderId"`
	SenderName     string             `bson:"senderName" json:"senderName"`
	SenderAvatar   string             `bson:"senderAvatar" json:"senderAvatar"`
	Text           string             `bson:"text" json:"text"`
	Status         Status             `bson:"status" json:"status"`
	ReadBy         []string           `bson:"readBy" json:"readBy"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Recipients returns every member except the sender.
func (c *Conversation) Recipients(senderID string) []string {
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if m != senderID {
			out = append(out, m)
		}
	}
	return out
}

// SortTime is the listing sort key: lastMessageAt when set, otherwise
// the conversation's updatedAt.
func (c *Conversation) SortTime() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.UpdatedAt
}

// DirectKeyFor normalizes an unordered user pair into the content-addressed
// key a direct conversation is unique on. Symmetric in its arguments.
func DirectKeyFor(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}
