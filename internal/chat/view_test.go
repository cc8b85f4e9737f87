package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chatwire/internal/profile"
)

func TestDirectViewUsesOtherMemberIdentity(t *testing.T) {
	conv := &Conversation{
		ID:           primitive.NewObjectID(),
		Members:      []string{"alice", "bob"},
		UnreadCounts: UnreadCounts{"alice": 0, "bob": 2},
	}
	profiles := map[string]profile.Profile{
		"alice": {UserID: "alice", DisplayName: "Alice", AvatarURL: "https://pics/alice.png"},
		"bob":   {UserID: "bob", DisplayName: "Bob", AvatarURL: "https://pics/bob.png"},
	}

	aliceView := BuildConversationView(conv, profiles, "alice")
	assert.Equal(t, "Bob", aliceView.Name)
	assert.Equal(t, "https://pics/bob.png", aliceView.Avatar)
	assert.Equal(t, 0, aliceView.UnreadCount)

	bobView := BuildConversationView(conv, profiles, "bob")
	assert.Equal(t, "Alice", bobView.Name)
	assert.Equal(t, 2, bobView.UnreadCount)
}

func TestGroupViewUsesStoredName(t *testing.T) {
	conv := &Conversation{
		ID:      primitive.NewObjectID(),
		IsGroup: true,
		Name:    "weekend plans",
		AdminID: "alice",
		Members: []string{"alice", "bob", "carol"},
	}

	view := BuildConversationView(conv, map[string]profile.Profile{}, "bob")
	assert.Equal(t, "weekend plans", view.Name)
	assert.Empty(t, view.Avatar, "groups render no avatar")
	assert.Equal(t, "alice", view.AdminID)

	conv.Name = ""
	view = BuildConversationView(conv, map[string]profile.Profile{}, "bob")
	assert.Equal(t, "Group chat", view.Name)
}

func TestViewStubsMissingProfiles(t *testing.T) {
	conv := &Conversation{
		ID:      primitive.NewObjectID(),
		Members: []string{"alice", "user_2NcQbz8h"},
	}

	view := BuildConversationView(conv, map[string]profile.Profile{}, "alice")
	require.Len(t, view.Members, 2)
	assert.Equal(t, "User lice", view.Members[0].DisplayName)
	assert.Equal(t, "User bz8h", view.Members[1].DisplayName)
}

func TestViewSortKeyFallback(t *testing.T) {
	updated := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	conv := &Conversation{
		ID:        primitive.NewObjectID(),
		Members:   []string{"alice", "bob"},
		UpdatedAt: updated,
	}

	view := BuildConversationView(conv, map[string]profile.Profile{}, "alice")
	assert.Equal(t, updated, view.LastMessageAt)
}

func TestBuildMessageViewNormalizesReadBy(t *testing.T) {
	msg := &Message{
		ID:             primitive.NewObjectID(),
		ConversationID: primitive.NewObjectID(),
		SenderID:       "alice",
		Text:           "hi",
		Status:         StatusSent,
	}

	view := BuildMessageView(msg)
	assert.NotNil(t, view.ReadBy)
	assert.Empty(t, view.ReadBy)
	assert.Equal(t, msg.ID.Hex(), view.ID)
}
