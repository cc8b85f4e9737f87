package chat

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"chatwire/internal/profile"
	"chatwire/pkg/apperror"
)

// Event names on the realtime wire. message:new matches the legacy
// client protocol; conversation:updated is the personal-channel summary
// push that keeps list screens and badges current.
const (
	EventMessageNew          = "message:new"
	EventMessageStatus       = "message:status"
	EventConversationUpdated = "conversation:updated"
)

type ConversationStore interface {
	EnsureDirect(ctx context.Context, requesterID, targetID string) (*Conversation, bool, error)
	CreateGroup(ctx context.Context, adminID, name string, members []string) (*Conversation, error)
	FindByID(ctx context.Context, conversationID string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]Conversation, error)
	ApplyMessage(ctx context.Context, conversationID primitive.ObjectID, snapshot LastMessage, recipients []string) (*Conversation, error)
	ResetUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (*Conversation, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *Message) (*Message, error)
	FindByID(ctx context.Context, messageID string) (*Message, error)
	ListForConversation(ctx context.Context, conversationID primitive.ObjectID) ([]Message, error)
	MarkDelivered(ctx context.Context, messageID primitive.ObjectID) (*Message, error)
	AddReader(ctx context.Context, messageID primitive.ObjectID, readerID string) (*Message, error)
	SetStatusSeen(ctx context.Context, messageID primitive.ObjectID) error
}

// Broadcaster is the realtime fan-out surface. Both methods are
// fire-and-forget: channel-level failures never fail the write that
// triggered them.
type Broadcaster interface {
	ToConversation(conversationID, excludeConnID, event string, payload any)
	ToUser(userID, event string, payload any)
}

// PresenceReader answers whether any of the given users currently hold a
// live connection, which drives the sent-to-delivered transition.
type PresenceReader interface {
	AnyOnline(userIDs []string) bool
}

type Service struct {
	conversations ConversationStore
	messages      MessageStore
	directory     profile.Directory
	broadcaster   Broadcaster
	presence      PresenceReader
	log           *zap.Logger
}

func NewService(
	conversations ConversationStore,
	messages MessageStore,
	directory profile.Directory,
	broadcaster Broadcaster,
	presence PresenceReader,
	log *zap.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		directory:     directory,
		broadcaster:   broadcaster,
		presence:      presence,
		log:           log,
	}
}

// EnsureDirect is the idempotent find-or-create for a direct
// conversation. Symmetric in its arguments; a freshly created
// conversation is announced on the target's personal channel.
func (s *Service) EnsureDirect(ctx context.Context, requesterID, targetID string) (*ConversationView, error) {
	if targetID == "" {
		return nil, apperror.InvalidArg("targetUserId required")
	}
	if targetID == requesterID {
		return nil, apperror.InvalidArg("cannot start a conversation with yourself")
	}

	conv, created, err := s.conversations.EnsureDirect(ctx, requesterID, targetID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.directory.LookupMany(ctx, conv.Members)
	if err != nil {
		return nil, err
	}

	if created {
		targetView := BuildConversationView(conv, profiles, targetID)
		s.broadcaster.ToUser(targetID, EventConversationUpdated, targetView)
	}

	view := BuildConversationView(conv, profiles, requesterID)
	return &view, nil
}

func (s *Service) CreateGroup(ctx context.Context, adminID, name string, memberIDs []string) (*ConversationView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.InvalidArg("group name required")
	}

	members := []string{adminID}
	seen := map[string]struct{}{adminID: {}}
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) < 3 {
		return nil, apperror.InvalidArg("a group needs at least three distinct members")
	}

	conv, err := s.conversations.CreateGroup(ctx, adminID, name, members)
	if err != nil {
		return nil, err
	}

	profiles, err := s.directory.LookupMany(ctx, conv.Members)
	if err != nil {
		return nil, err
	}

	for _, member := range conv.Members {
		if member == adminID {
			continue
		}
		s.broadcaster.ToUser(member, EventConversationUpdated, BuildConversationView(conv, profiles, member))
	}

	view := BuildConversationView(conv, profiles, adminID)
	return &view, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]ConversationView, error) {
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var memberIDs []string
	for i := range conversations {
		memberIDs = append(memberIDs, conversations[i].Members...)
	}
	profiles, err := s.directory.LookupMany(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(conversations))
	for i := range conversations {
		views = append(views, BuildConversationView(&conversations[i], profiles, userID))
	}
	return views, nil
}

// GetDetail treats non-membership exactly like non-existence so callers
// cannot probe for conversations they are not part of.
func (s *Service) GetDetail(ctx context.Context, conversationID, userID string) (*ConversationView, error) {
	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.directory.LookupMany(ctx, conv.Members)
	if err != nil {
		return nil, err
	}

	view := BuildConversationView(conv, profiles, userID)
	return &view, nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID, userID string) ([]MessageView, error) {
	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListForConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, BuildMessageView(&messages[i]))
	}
	return views, nil
}

// SendMessage runs the write pipeline in strict order: validate, persist
// the message, fold snapshot plus unread counters into the conversation,
// and only then fan out. A failure at any storage step means nothing is
// broadcast, so clients never see a message a fetch cannot find.
func (s *Service) SendMessage(ctx context.Context, senderID, conversationID, text, originConnID string) (*MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.InvalidArg("message text required")
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(senderID) {
		return nil, apperror.Forbidden("not a member of this conversation")
	}

	profiles, err := s.directory.LookupMany(ctx, conv.Members)
	if err != nil {
		return nil, err
	}
	sender := profile.ResolveOrStub(profiles, senderID)

	msg, err := s.messages.Insert(ctx, &Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderName:     sender.DisplayName,
		SenderAvatar:   sender.AvatarURL,
		Text:           text,
	})
	if err != nil {
		return nil, err
	}

	snapshot := LastMessage{
		Text:         msg.Text,
		SenderID:     msg.SenderID,
		SenderName:   msg.SenderName,
		SenderAvatar: msg.SenderAvatar,
		CreatedAt:    msg.CreatedAt,
	}
	recipients := conv.Recipients(senderID)

	conv, err = s.conversations.ApplyMessage(ctx, conv.ID, snapshot, recipients)
	if err != nil {
		return nil, err
	}

	view := BuildMessageView(msg)
	s.broadcaster.ToConversation(conversationID, originConnID, EventMessageNew, messageEvent{
		ConversationID: conversationID,
		Message:        view,
	})
	for _, member := range conv.Members {
		s.broadcaster.ToUser(member, EventConversationUpdated, BuildConversationView(conv, profiles, member))
	}

	if s.presence.AnyOnline(recipients) {
		if delivered := s.markDelivered(ctx, msg.ID, conversationID); delivered != nil {
			view = *delivered
		}
	}

	s.log.Debug("message sent",
		zap.String("conversation", conversationID),
		zap.String("message", view.ID),
	)
	return &view, nil
}

type messageEvent struct {
	ConversationID string      `json:"conversationId"`
	Message        MessageView `json:"message"`
}

type statusEvent struct {
	ConversationID string   `json:"conversationId"`
	MessageID      string   `json:"messageId"`
	Status         Status   `json:"status"`
	ReadBy         []string `json:"readBy"`
}

func (s *Service) markDelivered(ctx context.Context, messageID primitive.ObjectID, conversationID string) *MessageView {
	msg, err := s.messages.MarkDelivered(ctx, messageID)
	if err != nil {
		// The message is already persisted; delivery bookkeeping must
		// not fail the send.
		s.log.Warn("mark delivered failed", zap.String("message", messageID.Hex()), zap.Error(err))
		return nil
	}
	if msg == nil {
		return nil
	}

	view := BuildMessageView(msg)
	s.broadcaster.ToConversation(conversationID, "", EventMessageStatus, statusEvent{
		ConversationID: conversationID,
		MessageID:      view.ID,
		Status:         view.Status,
		ReadBy:         view.ReadBy,
	})
	return &view
}

// MarkSeen records a read receipt and refreshes the cached status
// projection. Idempotent for repeat readers; the sender reading their
// own message changes nothing.
func (s *Service) MarkSeen(ctx context.Context, readerID, messageID string) (*MessageView, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	conversationID := msg.ConversationID.Hex()
	conv, err := s.memberConversation(ctx, conversationID, readerID)
	if err != nil {
		return nil, err
	}

	if msg.SenderID == readerID {
		view := BuildMessageView(msg)
		return &view, nil
	}

	msg, err = s.messages.AddReader(ctx, msg.ID, readerID)
	if err != nil {
		return nil, err
	}

	recipients := conv.Recipients(msg.SenderID)
	projected := Project(msg.Status, msg.ReadBy, recipients, PolicyFor(conv.IsGroup))
	if projected == StatusSeen && msg.Status != StatusSeen {
		if err := s.messages.SetStatusSeen(ctx, msg.ID); err != nil {
			return nil, err
		}
		msg.Status = StatusSeen
	}

	view := BuildMessageView(msg)
	s.broadcaster.ToConversation(conversationID, "", EventMessageStatus, statusEvent{
		ConversationID: conversationID,
		MessageID:      view.ID,
		Status:         view.Status,
		ReadBy:         view.ReadBy,
	})
	return &view, nil
}

// ResetUnread clears the caller's badge for a conversation and syncs the
// caller's other sessions through their personal channel.
func (s *Service) ResetUnread(ctx context.Context, conversationID, userID string) (*ConversationView, error) {
	conv, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	conv, err = s.conversations.ResetUnread(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.directory.LookupMany(ctx, conv.Members)
	if err != nil {
		return nil, err
	}

	view := BuildConversationView(conv, profiles, userID)
	s.broadcaster.ToUser(userID, EventConversationUpdated, view)
	return &view, nil
}

func (s *Service) memberConversation(ctx context.Context, conversationID, userID string) (*Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(userID) {
		return nil, apperror.NotFound("conversation not found")
	}
	return conv, nil
}
