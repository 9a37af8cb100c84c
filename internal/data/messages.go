package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using the given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// Save inserts a message document and returns the saved record.
func (m *MessagesStore) Save(ctx context.Context, chatID, authorID, content, msgType, attachmentURL string) (*Message, error) {
	cID, err := parseID(chatID)
	if err != nil {
		return nil, err
	}
	aID, err := parseID(authorID)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ChatID:        cID,
		AuthorID:      aID,
		Content:       content,
		Type:          msgType,
		AttachmentURL: attachmentURL,
		CreatedAt:     time.Now(),
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// enrichedMessage is the decode target for the $lookup pipeline joining a
// message with its author document.
type enrichedMessage struct {
	Message `bson:",inline"`
	Author  []User `bson:"author"`
}

func (e *enrichedMessage) view() *MessageView {
	v := &MessageView{
		MessageID:     e.ID.Hex(),
		ChatID:        e.ChatID.Hex(),
		UserID:        e.AuthorID.Hex(),
		Content:       e.Content,
		Type:          e.Type,
		AttachmentURL: e.AttachmentURL,
		CreatedAt:     e.CreatedAt,
		IsEdited:      e.IsEdited,
		IsRead:        e.IsRead,
	}
	// The author row can be absent when the account was deleted after the
	// message was stored; the view then carries empty display fields.
	if len(e.Author) > 0 {
		v.UserName = e.Author[0].Name
		v.UserEmail = e.Author[0].Email
	}
	return v
}

// authorLookupStage joins messages with the users collection on author_id.
func authorLookupStage() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "users"},
		{Key: "localField", Value: "author_id"},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "author"},
	}}}
}

// GetView re-reads a single message joined with author display data. The
// router always broadcasts this enriched shape, never the bare insert.
func (m *MessagesStore) GetView(ctx context.Context, id string) (*MessageView, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}},
		authorLookupStage(),
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []enrichedMessage
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].view(), nil
}

// HistoryViews returns up to limit most recent messages for a chat in
// chronological order (oldest first), each joined with author data.
func (m *MessagesStore) HistoryViews(ctx context.Context, chatID string, limit int64) ([]*MessageView, error) {
	cID, err := parseID(chatID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "chat_id", Value: cID}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		bson.D{{Key: "$limit", Value: limit}},
		authorLookupStage(),
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []enrichedMessage
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	views := make([]*MessageView, len(rows))
	for i, r := range rows {
		// reverse: the pipeline sorted newest first
		views[len(rows)-1-i] = r.view()
	}
	return views, nil
}

// MarkRead flags every message in the chat not authored by readerID as read.
// Called when the reader fetches chat history.
func (m *MessagesStore) MarkRead(ctx context.Context, chatID, readerID string) error {
	cID, err := parseID(chatID)
	if err != nil {
		return err
	}
	rID, err := parseID(readerID)
	if err != nil {
		return err
	}

	_, err = m.coll.UpdateMany(ctx, bson.M{
		"chat_id":   cID,
		"author_id": bson.M{"$ne": rID},
		"is_read":   false,
	}, bson.M{"$set": bson.M{"is_read": true}})
	return err
}

// UpdateContent edits a text message's content and sets is_edited. The
// filter carries the author and type conditions so a non-author (or an edit
// of an attachment message) can never match; the row-level conditional
// write is the safety net against lost updates.
func (m *MessagesStore) UpdateContent(ctx context.Context, id, authorID, content string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	aID, err := parseID(authorID)
	if err != nil {
		return err
	}

	res, err := m.coll.UpdateOne(ctx, bson.M{
		"_id":       oid,
		"author_id": aID,
		"type":      MessageTypeText,
	}, bson.M{"$set": bson.M{"content": content, "is_edited": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing message from an authorization failure.
		count, err := m.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrNotAuthorized
	}
	return nil
}

// DeleteByAuthor hard-deletes a message; the author condition lives in the
// delete filter itself, mirroring UpdateContent.
func (m *MessagesStore) DeleteByAuthor(ctx context.Context, id, authorID string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	aID, err := parseID(authorID)
	if err != nil {
		return err
	}

	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid, "author_id": aID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		count, err := m.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrNotAuthorized
	}
	return nil
}
