package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"chatwire/pkg/apperror"
)

// The hex parse rejects malformed ids before any round trip, so a
// zero-value repository is enough to exercise the branch.
func TestConversationFindByIDRejectsMalformedID(t *testing.T) {
	repo := &ConversationRepository{}

	_, err := repo.FindByID(context.Background(), "not-an-object-id")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidArgument))
	assert.Equal(t, "invalid conversation id", apperror.MessageOf(err))
}

func TestMessageFindByIDRejectsMalformedID(t *testing.T) {
	repo := &MessageRepository{}

	_, err := repo.FindByID(context.Background(), "zzz")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidArgument))
	assert.Equal(t, "invalid message id", apperror.MessageOf(err))
}

func TestNormalizeCountsAtDecode(t *testing.T) {
	conv := &Conversation{
		Members:      []string{"alice", "bob"},
		UnreadCounts: UnreadCounts{"alice": 2, "departed": 7, "bob": -1},
	}

	normalizeCounts(conv)

	assert.Equal(t, UnreadCounts{"alice": 2, "bob": 0}, conv.UnreadCounts)
	assert.Equal(t, 0, conv.UnreadCounts.Get("departed"))
}
