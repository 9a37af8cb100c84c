package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Chat and message type tags stored on documents and carried on the wire.
const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"

	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeFile  = "file"
	MessageTypeVoice = "voice"
)

// ValidMessageType reports whether t is one of the known message type tags.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeFile, MessageTypeVoice:
		return true
	}
	return false
}

// User maps to the users collection. IsOnline and LastSeen form the
// persisted presence record and are updated on every connect/disconnect.
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Name      string        `bson:"name"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	IsOnline  bool          `bson:"is_online"`
	LastSeen  time.Time     `bson:"last_seen"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// PublicUser is the JSON shape of a user exposed by the REST API; it never
// carries the password hash.
type PublicUser struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// Public converts a stored user into its REST shape.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		UserID:   u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}

// PresenceStatus is the batch-read presence shape keyed by user id.
type PresenceStatus struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Chat maps to the chats collection. Participants are fixed at creation
// time; LastActivity advances whenever a message lands in the chat.
type Chat struct {
	ID           bson.ObjectID   `bson:"_id,omitempty"`
	Type         string          `bson:"type"`
	Participants []bson.ObjectID `bson:"participants"`
	CreatedAt    time.Time       `bson:"created_at"`
	LastActivity time.Time       `bson:"last_activity"`
}

// HasParticipant reports whether the user id (hex) belongs to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.Hex() == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the participant set as hex strings.
func (c *Chat) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.Hex())
	}
	return ids
}

// ChatView is the JSON shape of a chat returned by the REST list endpoint
// and carried in chat_created events. ParticipantNames is comma-joined,
// matching what the web client renders.
type ChatView struct {
	ChatID           string    `json:"chat_id"`
	Type             string    `json:"chat_type"`
	ParticipantIDs   []string  `json:"participant_ids"`
	ParticipantNames string    `json:"participant_names"`
	LastMessage      string    `json:"last_message,omitempty"`
	LastMessageTime  time.Time `json:"last_message_time,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Message maps to the messages collection.
type Message struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	ChatID        bson.ObjectID `bson:"chat_id"`
	AuthorID      bson.ObjectID `bson:"author_id"`
	Content       string        `bson:"content"`
	Type          string        `bson:"type"`
	AttachmentURL string        `bson:"attachment_url,omitempty"`
	CreatedAt     time.Time     `bson:"created_at"`
	IsEdited      bool          `bson:"is_edited"`
	IsRead        bool          `bson:"is_read"`
}

// MessageView is a message joined with its author's display data. Every
// delivery path (real-time events and REST history) returns this shape so
// recipients see a consistent record regardless of how it reached them.
type MessageView struct {
	MessageID     string    `json:"message_id"`
	ChatID        string    `json:"chat_id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserEmail     string    `json:"user_email"`
	Content       string    `json:"content"`
	Type          string    `json:"message_type"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	IsEdited      bool      `json:"is_edited"`
	IsRead        bool      `json:"is_read"`
}
