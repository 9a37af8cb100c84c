package main

import (
	"encoding/json"
	"fmt"

	"github.com/krpetrov/svyaz/internal/data"
)

// Wire event names. Inbound and outbound payloads are closed sets of typed
// structs; dispatch is an exhaustive type switch in the session, so a new
// event kind cannot be added without the compiler noticing.
const (
	evRegisterUser  = "register_user"
	evSendMessage   = "send_message"
	evCreateChat    = "create_chat"
	evEditMessage   = "edit_message"
	evDeleteMessage = "delete_message"

	evNewMessage         = "new_message"
	evMessageUpdated     = "message_updated"
	evMessageDeleted     = "message_deleted"
	evChatCreated        = "chat_created"
	evOnlineUsersList    = "online_users_list"
	evUserOnline         = "user_online"
	evUserOffline        = "user_offline"
	evMessageError       = "message_error"
	evMessageUpdateError = "message_update_error"
	evMessageDeleteError = "message_delete_error"
)

// Event is the outbound envelope written to a websocket connection.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// inboundEnvelope is the raw client frame before payload decoding.
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound payload variants.

type registerUserPayload struct {
	UserID string `json:"user_id"`
}

type sendMessagePayload struct {
	ChatID        string `json:"chat_id"`
	UserID        string `json:"user_id"`
	Content       string `json:"content"`
	MessageType   string `json:"message_type"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

type createChatPayload struct {
	UserID        string `json:"user_id"`
	ParticipantID string `json:"participant_id"`
	ChatType      string `json:"chat_type"`
}

type editMessagePayload struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
}

type deleteMessagePayload struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}

// errUnknownEvent marks a frame whose event name is outside the closed set.
type errUnknownEvent struct{ name string }

func (e errUnknownEvent) Error() string { return fmt.Sprintf("unknown event %q", e.name) }

// decodeInbound parses a client frame into one of the inbound payload
// variants. The returned value is always a pointer to one of the payload
// structs above; callers switch on the concrete type.
func decodeInbound(raw []byte) (any, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var payload any
	switch env.Event {
	case evRegisterUser:
		payload = &registerUserPayload{}
	case evSendMessage:
		payload = &sendMessagePayload{}
	case evCreateChat:
		payload = &createChatPayload{}
	case evEditMessage:
		payload = &editMessagePayload{}
	case evDeleteMessage:
		payload = &deleteMessagePayload{}
	default:
		return nil, errUnknownEvent{name: env.Event}
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
	}
	return payload, nil
}

// Outbound event constructors.

func newMessageEvent(v *data.MessageView) Event {
	return Event{Event: evNewMessage, Data: v}
}

func messageUpdatedEvent(v *data.MessageView) Event {
	return Event{Event: evMessageUpdated, Data: v}
}

func messageDeletedEvent(messageID string) Event {
	return Event{Event: evMessageDeleted, Data: map[string]string{"message_id": messageID}}
}

func chatCreatedEvent(v *data.ChatView) Event {
	return Event{Event: evChatCreated, Data: v}
}

func onlineUsersListEvent(ids []string) Event {
	return Event{Event: evOnlineUsersList, Data: map[string][]string{"user_ids": ids}}
}

func userOnlineEvent(id string) Event {
	return Event{Event: evUserOnline, Data: map[string]string{"user_id": id}}
}

func userOfflineEvent(id string) Event {
	return Event{Event: evUserOffline, Data: map[string]string{"user_id": id}}
}

func messageErrorEvent(reason string) Event {
	return Event{Event: evMessageError, Data: map[string]string{"error": reason}}
}

func messageUpdateErrorEvent(reason string) Event {
	return Event{Event: evMessageUpdateError, Data: map[string]string{"error": reason}}
}

func messageDeleteErrorEvent(reason string) Event {
	return Event{Event: evMessageDeleteError, Data: map[string]string{"error": reason}}
}
