package chat

import (
	"time"

	"chatwire/internal/profile"
)

// ConversationView is the client-facing shape of a conversation, with
// member ids resolved to display identities and the unread count scoped
// to the requesting user.
type ConversationView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	IsGroup       bool              `json:"isGroup"`
	Avatar        string            `json:"avatar"`
	Members       []profile.Profile `json:"members"`
	UnreadCount   int               `json:"unreadCount"`
	LastMessage   *LastMessage      `json:"lastMessage"`
	LastMessageAt time.Time         `json:"lastMessageAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	AdminID       string            `json:"adminId,omitempty"`
}

type MessageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderAvatar   string    `json:"senderAvatar"`
	Text           string    `json:"text"`
	Status         Status    `json:"status"`
	ReadBy         []string  `json:"readBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BuildConversationView projects a conversation for one viewer. Groups
// use the stored name (generic label when blank) and no avatar; direct
// conversations borrow the other member's identity.
func BuildConversationView(conv *Conversation, profiles map[string]profile.Profile, viewerID string) ConversationView {
	members := make([]profile.Profile, 0, len(conv.Members))
	var other *profile.Profile
	for _, id := range conv.Members {
		p := profile.ResolveOrStub(profiles, id)
		members = append(members, p)
		if other == nil && id != viewerID {
			otherCopy := p
			other = &otherCopy
		}
	}
	if other == nil && len(members) > 0 {
		other = &members[0]
	}

	title := conv.Name
	avatar := ""
	if conv.IsGroup {
		if title == "" {
			title = "Group chat"
		}
	} else if other != nil {
		if title == "" {
			title = other.DisplayName
		}
		avatar = other.AvatarURL
	}
	if title == "" {
		title = "Conversation"
	}

	return ConversationView{
		ID:            conv.ID.Hex(),
		Name:          title,
		IsGroup:       conv.IsGroup,
		Avatar:        avatar,
		Members:       members,
		UnreadCount:   conv.UnreadCounts.Get(viewerID),
		LastMessage:   conv.LastMessage,
		LastMessageAt: conv.SortTime(),
		CreatedAt:     conv.CreatedAt,
		AdminID:       conv.AdminID,
	}
}

func BuildMessageView(msg *Message) MessageView {
	readBy := msg.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return MessageView{
		ID:             msg.ID.Hex(),
		ConversationID: msg.ConversationID.Hex(),
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		SenderAvatar:   msg.SenderAvatar,
		Text:           msg.Text,
		Status:         msg.Status,
		ReadBy:         readBy,
		CreatedAt:      msg.CreatedAt,
	}
}
