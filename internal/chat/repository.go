package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatwire/internal/db"
	"chatwire/pkg/apperror"
)

type ConversationRepository struct {
	coll *mongo.Collection
}

// normalizeCounts restores the keys-subset-of-members invariant on a
// conversation decoded from storage.
func normalizeCounts(c *Conversation) {
	c.UnreadCounts = c.UnreadCounts.Normalize(c.Members)
}

func NewConversationRepository(database *db.Database) *ConversationRepository {
	return &ConversationRepository{coll: database.DB.Collection(db.ConversationsCollection)}
}

// EnsureDirect finds or creates the direct conversation for an unordered
// user pair via an atomic upsert keyed on the unique directKey index. A
// plain find-then-create would let two concurrent callers both create;
// here the losing racer either matches the winner's fresh document or
// hits the duplicate-key error, which we resolve by re-reading. The
// second return value reports whether this call created the conversation.
func (r *ConversationRepository) EnsureDirect(ctx context.Context, requesterID, targetID string) (*Conversation, bool, error) {
	key := DirectKeyFor(requesterID, targetID)
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"isGroup":   false,
			"members":   []string{requesterID, targetID},
			"directKey": key,
			"unreadCounts": bson.M{
				requesterID: 0,
				targetID:    0,
			},
			"createdAt": now,
			"updatedAt": now,
		},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"directKey": key}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, apperror.Unavailable("conversation upsert failed", err)
	}
	created := err == nil && res.UpsertedID != nil

	var conv Conversation
	if err := r.coll.FindOne(ctx, bson.M{"directKey": key}).Decode(&conv); err != nil {
		return nil, false, apperror.Unavailable("conversation lookup failed", err)
	}
	normalizeCounts(&conv)
	return &conv, created, nil
}

func (r *ConversationRepository) CreateGroup(ctx context.Context, adminID, name string, members []string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := Conversation{
		Name:         name,
		IsGroup:      true,
		AdminID:      adminID,
		Members:      members,
		UnreadCounts: ZeroCounts(members),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.coll.InsertOne(ctx, conv)
	if err != nil {
		return nil, apperror.Unavailable("group creation failed", err)
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	return &conv, nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, conversationID string) (*Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, apperror.InvalidArg("invalid conversation id")
	}

	var conv Conversation
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperror.Unavailable("conversation lookup failed", err)
	}
	normalizeCounts(&conv)
	return &conv, nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]Conversation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "lastMessageAt", Value: -1},
		{Key: "updatedAt", Value: -1},
	})

	cursor, err := r.coll.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, apperror.Unavailable("conversation list failed", err)
	}
	defer cursor.Close(ctx)

	var conversations []Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, apperror.Unavailable("conversation decode failed", err)
	}
	for i := range conversations {
		normalizeCounts(&conversations[i])
	}
	return conversations, nil
}

// ApplyMessage records a send on the conversation document. Snapshot,
// sort key, and every recipient's unread increment land in one update so
// a reader can never observe the snapshot without the counters.
func (r *ConversationRepository) ApplyMessage(ctx context.Context, conversationID primitive.ObjectID, snapshot LastMessage, recipients []string) (*Conversation, error) {
	set := bson.M{
		"lastMessage":   snapshot,
		"lastMessageAt": snapshot.CreatedAt,
		"updatedAt":     snapshot.CreatedAt,
	}
	inc := bson.M{}
	for _, recipient := range recipients {
		inc["unreadCounts."+recipient] = 1
	}

	update := bson.M{"$set": set}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv Conversation
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperror.Unavailable("conversation update failed", err)
	}
	normalizeCounts(&conv)
	return &conv, nil
}

func (r *ConversationRepository) ResetUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) (*Conversation, error) {
	update := bson.M{
		"$set": bson.M{
			"unreadCounts." + userID: 0,
			"updatedAt":              time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv Conversation
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": conversationID}, update, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperror.Unavailable("unread reset failed", err)
	}
	normalizeCounts(&conv)
	return &conv, nil
}

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(database *db.Database) *MessageRepository {
	return &MessageRepository{coll: database.DB.Collection(db.MessagesCollection)}
}

func (r *MessageRepository) Insert(ctx context.Context, msg *Message) (*Message, error) {
	now := time.Now().UTC()
	msg.Status = StatusSent
	msg.ReadBy = []string{}
	msg.CreatedAt = now
	msg.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, apperror.Unavailable("message insert failed", err)
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return msg, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, messageID string) (*Message, error) {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, apperror.InvalidArg("invalid message id")
	}

	var msg Message
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("message not found")
	}
	if err != nil {
		return nil, apperror.Unavailable("message lookup failed", err)
	}
	return &msg, nil
}

func (r *MessageRepository) ListForConversation(ctx context.Context, conversationID primitive.ObjectID) ([]Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, apperror.Unavailable("message list failed", err)
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, apperror.Unavailable("message decode failed", err)
	}
	return messages, nil
}

// MarkDelivered advances sent to delivered. The filter pins the current
// status, so a message already delivered or seen is untouched and the
// method reports no transition.
func (r *MessageRepository) MarkDelivered(ctx context.Context, messageID primitive.ObjectID) (*Message, error) {
	update := bson.M{"$set": bson.M{
		"status":    StatusDelivered,
		"updatedAt": time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg Message
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID, "status": StatusSent}, update, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Unavailable("delivery update failed", err)
	}
	return &msg, nil
}

// AddReader records a read receipt. $addToSet keeps the operation
// idempotent at the document level.
func (r *MessageRepository) AddReader(ctx context.Context, messageID primitive.ObjectID, readerID string) (*Message, error) {
	update := bson.M{
		"$addToSet": bson.M{"readBy": readerID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg Message
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": messageID}, update, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("message not found")
	}
	if err != nil {
		return nil, apperror.Unavailable("read receipt failed", err)
	}
	return &msg, nil
}

// SetStatusSeen writes the cached status projection. The $ne guard keeps
// the write forward-only even if two readers race.
func (r *MessageRepository) SetStatusSeen(ctx context.Context, messageID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"status":    StatusSeen,
		"updatedAt": time.Now().UTC(),
	}}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID, "status": bson.M{"$ne": StatusSeen}}, update)
	if err != nil {
		return apperror.Unavailable("status update failed", err)
	}
	return nil
}
