package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDirectKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, DirectKeyFor("alice", "bob"), DirectKeyFor("bob", "alice"))
	assert.Equal(t, "alice|bob", DirectKeyFor("bob", "alice"))
	assert.NotEqual(t, DirectKeyFor("alice", "bob"), DirectKeyFor("alice", "carol"))
}

func TestRecipientsExcludeSender(t *testing.T) {
	conv := &Conversation{Members: []string{"alice", "bob", "carol"}}

	assert.ElementsMatch(t, []string{"bob", "carol"}, conv.Recipients("alice"))
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, conv.Recipients("outsider"))
}

func TestHasMember(t *testing.T) {
	conv := &Conversation{Members: []string{"alice", "bob"}}

	assert.True(t, conv.HasMember("alice"))
	assert.False(t, conv.HasMember("mallory"))
}

func TestSortTimeFallsBackToUpdatedAt(t *testing.T) {
	updated := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	lastMsg := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	conv := &Conversation{UpdatedAt: updated}
	assert.Equal(t, updated, conv.SortTime())

	conv.LastMessageAt = &lastMsg
	assert.Equal(t, lastMsg, conv.SortTime())
}
