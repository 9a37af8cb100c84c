package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/data"
)

// Validation failures reported to the sender before anything is persisted.
var (
	errEmptyContent   = errors.New("message content cannot be empty")
	errBadMessageType = errors.New("unknown message type")
)

// Store slices the router depends on. The concrete implementations live in
// internal/data; tests substitute fakes.
type messagesStore interface {
	Save(ctx context.Context, chatID, authorID, content, msgType, attachmentURL string) (*data.Message, error)
	GetView(ctx context.Context, id string) (*data.MessageView, error)
	UpdateContent(ctx context.Context, id, authorID, content string) error
	DeleteByAuthor(ctx context.Context, id, authorID string) error
}

type chatsStore interface {
	Create(ctx context.Context, a, b, chatType string) (*data.Chat, error)
	Get(ctx context.Context, id string) (*data.Chat, error)
	View(ctx context.Context, chat *data.Chat) (*data.ChatView, error)
	TouchLastActivity(ctx context.Context, id string, t time.Time) error
}

type userChecker interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// presenceMarker lets the router complete the offline transition when it
// evicts a dead connection, since that connection's own close path will find
// the registry mapping already gone.
type presenceMarker interface {
	MarkOffline(ctx context.Context, userID string)
}

// MessageRouter persists message intents and fans the enriched records out
// to every participant's active connection. Durability comes solely from the
// store write; fan-out is a best-effort notification layer on top.
type MessageRouter struct {
	msgs     messagesStore
	chats    chatsStore
	users    userChecker
	registry *ConnectionRegistry
	presence presenceMarker
	logger   *zap.Logger
}

// NewMessageRouter wires a router over the stores, registry and presence.
func NewMessageRouter(msgs messagesStore, chats chatsStore, users userChecker, registry *ConnectionRegistry, presence presenceMarker, logger *zap.Logger) *MessageRouter {
	return &MessageRouter{msgs: msgs, chats: chats, users: users, registry: registry, presence: presence, logger: logger}
}

// Send validates, persists and fans out one message. Any error before or
// during the insert aborts the whole operation; a failure after the insert
// (fan-out, last-activity touch) never rolls the message back, the message
// is considered sent once stored.
func (r *MessageRouter) Send(ctx context.Context, p sendMessagePayload) (*data.MessageView, error) {
	if !data.ValidMessageType(p.MessageType) {
		return nil, errBadMessageType
	}
	if p.MessageType == data.MessageTypeText && p.Content == "" {
		return nil, errEmptyContent
	}

	chat, err := r.chats.Get(ctx, p.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(p.UserID) {
		return nil, data.ErrNotAuthorized
	}

	saved, err := r.msgs.Save(ctx, p.ChatID, p.UserID, html.EscapeString(p.Content), p.MessageType, p.AttachmentURL)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	// The enriched record is what every recipient sees, over any path.
	view, err := r.msgs.GetView(ctx, saved.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("read back message: %w", err)
	}

	r.fanOut(ctx, chat.ParticipantIDs(), newMessageEvent(view))

	if err := r.chats.TouchLastActivity(ctx, p.ChatID, view.CreatedAt); err != nil {
		r.logger.Warn("last activity update failed", zap.String("chat_id", p.ChatID), zap.Error(err))
	}

	return view, nil
}

// Edit rewrites a text message's content. Only the author may edit, only
// text messages are editable, and the updated record is re-broadcast to all
// participants' active connections, not just the author's.
func (r *MessageRouter) Edit(ctx context.Context, p editMessagePayload) (*data.MessageView, error) {
	if p.Content == "" {
		return nil, errEmptyContent
	}

	if err := r.msgs.UpdateContent(ctx, p.MessageID, p.UserID, html.EscapeString(p.Content)); err != nil {
		return nil, err
	}

	view, err := r.msgs.GetView(ctx, p.MessageID)
	if err != nil {
		return nil, err
	}

	chat, err := r.chats.Get(ctx, view.ChatID)
	if err != nil {
		return nil, err
	}
	r.fanOut(ctx, chat.ParticipantIDs(), messageUpdatedEvent(view))

	return view, nil
}

// Delete hard-deletes a message; only the author may delete. The session
// notifies the requester alone; other participants receive nothing.
func (r *MessageRouter) Delete(ctx context.Context, p deleteMessagePayload) error {
	return r.msgs.DeleteByAuthor(ctx, p.MessageID, p.UserID)
}

// CreateChat inserts a chat between the requester and a participant and
// notifies both live connections with chat_created. The duplicate-pair check
// is advisory and lives with the caller (the chats/check endpoint).
func (r *MessageRouter) CreateChat(ctx context.Context, p createChatPayload) (*data.ChatView, error) {
	exists, err := r.users.UserExists(ctx, p.ParticipantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, data.ErrNotFound
	}

	chat, err := r.chats.Create(ctx, p.UserID, p.ParticipantID, p.ChatType)
	if err != nil {
		return nil, err
	}

	view, err := r.chats.View(ctx, chat)
	if err != nil {
		return nil, err
	}

	r.fanOut(ctx, chat.ParticipantIDs(), chatCreatedEvent(view))
	return view, nil
}

// fanOut delivers one event to every participant with an active connection.
// Offline participants are skipped silently; a failing connection is logged,
// evicted and its user marked offline, since the session's own close will
// no longer find it in the registry.
func (r *MessageRouter) fanOut(ctx context.Context, participantIDs []string, ev Event) {
	for _, id := range participantIDs {
		conn, ok := r.registry.Lookup(id)
		if !ok {
			continue
		}
		if err := conn.Send(ev); err != nil {
			r.logger.Warn("delivery failed", zap.String("to", id), zap.Error(err))
			if userID, ok := r.registry.Unregister(conn); ok {
				r.presence.MarkOffline(ctx, userID)
			}
		}
	}
}
