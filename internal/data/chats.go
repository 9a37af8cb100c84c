package data

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ChatsStore provides chat database operations.
type ChatsStore struct {
	coll *mongo.Collection
	// msgs is needed for last-message previews in ListForUser.
	msgs *mongo.Collection
	// users is needed for participant display names.
	users *mongo.Collection
}

// NewChatsStore returns a ChatsStore over the chats collection, with access
// to messages and users for enriched list reads.
func NewChatsStore(chats, msgs, users *mongo.Collection) *ChatsStore {
	return &ChatsStore{coll: chats, msgs: msgs, users: users}
}

// Create inserts a chat between two users. The duplicate-pair existence
// check is the caller's responsibility (FindPrivate); creating a second
// private chat for the same pair is possible when that check is skipped.
func (s *ChatsStore) Create(ctx context.Context, a, b, chatType string) (*Chat, error) {
	aID, err := parseID(a)
	if err != nil {
		return nil, err
	}
	bID, err := parseID(b)
	if err != nil {
		return nil, err
	}
	if chatType == "" {
		chatType = ChatTypePrivate
	}

	now := time.Now()
	chat := &Chat{
		Type:         chatType,
		Participants: []bson.ObjectID{aID, bID},
		CreatedAt:    now,
		LastActivity: now,
	}

	result, err := s.coll.InsertOne(ctx, chat)
	if err != nil {
		return nil, err
	}
	chat.ID = result.InsertedID.(bson.ObjectID)
	return chat, nil
}

// Get fetches a chat by hex id.
func (s *ChatsStore) Get(ctx context.Context, id string) (*Chat, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var chat Chat
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&chat); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// FindPrivate returns the id of an existing private chat between the two
// users, if one exists. This is the advisory pre-creation check.
func (s *ChatsStore) FindPrivate(ctx context.Context, a, b string) (string, bool, error) {
	aID, err := parseID(a)
	if err != nil {
		return "", false, err
	}
	bID, err := parseID(b)
	if err != nil {
		return "", false, err
	}

	var chat Chat
	err = s.coll.FindOne(ctx, bson.M{
		"type":         ChatTypePrivate,
		"participants": bson.M{"$all": bson.A{aID, bID}},
	}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", false, nil
		}
		return "", false, err
	}
	return chat.ID.Hex(), true, nil
}

// TouchLastActivity advances the chat's last-activity timestamp.
func (s *ChatsStore) TouchLastActivity(ctx context.Context, id string, t time.Time) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"last_activity": t},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// View builds the ChatView for a single chat: participant names resolved,
// no last-message preview (used for chat_created events).
func (s *ChatsStore) View(ctx context.Context, chat *Chat) (*ChatView, error) {
	names, err := s.participantNames(ctx, chat.Participants)
	if err != nil {
		return nil, err
	}
	return &ChatView{
		ChatID:           chat.ID.Hex(),
		Type:             chat.Type,
		ParticipantIDs:   chat.ParticipantIDs(),
		ParticipantNames: names,
		CreatedAt:        chat.CreatedAt,
	}, nil
}

// ListForUser returns the user's chats ordered by most recent activity,
// enriched with participant names and a last-message preview.
func (s *ChatsStore) ListForUser(ctx context.Context, userID string) ([]*ChatView, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.coll.Find(ctx,
		bson.M{"participants": uid},
		options.Find().SetSort(bson.M{"last_activity": -1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []*Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return []*ChatView{}, nil
	}

	chatIDs := make([]bson.ObjectID, 0, len(chats))
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
	}
	previews, err := s.lastMessages(ctx, chatIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*ChatView, 0, len(chats))
	for _, c := range chats {
		names, err := s.participantNames(ctx, c.Participants)
		if err != nil {
			return nil, err
		}
		view := &ChatView{
			ChatID:           c.ID.Hex(),
			Type:             c.Type,
			ParticipantIDs:   c.ParticipantIDs(),
			ParticipantNames: names,
			CreatedAt:        c.CreatedAt,
		}
		if p, ok := previews[c.ID.Hex()]; ok {
			view.LastMessage = p.Content
			view.LastMessageTime = p.CreatedAt
		}
		views = append(views, view)
	}
	return views, nil
}

// participantNames resolves participant ids to a comma-joined name list.
func (s *ChatsStore) participantNames(ctx context.Context, ids []bson.ObjectID) (string, error) {
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return "", err
	}
	defer cursor.Close(ctx)

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return "", err
	}

	// Preserve participant order, not query order.
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID.Hex()] = u.Name
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id.Hex()]; ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, ","), nil
}

type lastMessagePreview struct {
	Content   string
	CreatedAt time.Time
}

// lastMessages aggregates the newest message per chat in one round trip.
func (s *ChatsStore) lastMessages(ctx context.Context, chatIDs []bson.ObjectID) (map[string]lastMessagePreview, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "chat_id", Value: bson.D{{Key: "$in", Value: chatIDs}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$chat_id"},
			{Key: "content", Value: bson.D{{Key: "$first", Value: "$content"}}},
			{Key: "created_at", Value: bson.D{{Key: "$first", Value: "$created_at"}}},
		}}},
	}

	cursor, err := s.msgs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ChatID    bson.ObjectID `bson:"_id"`
		Content   string        `bson:"content"`
		CreatedAt time.Time     `bson:"created_at"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make(map[string]lastMessagePreview, len(rows))
	for _, r := range rows {
		out[r.ChatID.Hex()] = lastMessagePreview{Content: r.Content, CreatedAt: r.CreatedAt}
	}
	return out, nil
}
