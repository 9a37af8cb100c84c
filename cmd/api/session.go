package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/auth"
	"github.com/krpetrov/svyaz/internal/data"
)

// wsTransport is the subset of *websocket.Conn the session uses, so tests
// can run the loop over an in-memory pipe.
type wsTransport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// wsConn serializes writes to one websocket connection and implements
// Sender. Fan-out, presence broadcast and the session's own replies may all
// write concurrently; the gorilla-style conn underneath allows only one
// writer at a time.
type wsConn struct {
	mu sync.Mutex
	t  wsTransport
}

func newWSConn(t wsTransport) *wsConn {
	return &wsConn{t: t}
}

// Send marshals the event and writes it as one text frame.
func (c *wsConn) Send(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.WriteMessage(websocket.TextMessage, payload)
}

// Session states. A session is created per transport connection and never
// re-enters from Disconnected; a reconnect is a fresh session.
type sessionState int

const (
	stateConnecting sessionState = iota
	stateRegistered
	stateDisconnected
)

// Session drives one websocket connection through
// Connecting → Registered → Disconnected, translating inbound frames into
// registry/presence/router calls.
type Session struct {
	conn     *wsConn
	claims   *auth.Claims
	registry *ConnectionRegistry
	presence *PresenceTracker
	router   *MessageRouter
	logger   *zap.Logger

	state  sessionState
	userID string
}

func newSession(conn *wsConn, claims *auth.Claims, registry *ConnectionRegistry, presence *PresenceTracker, router *MessageRouter, logger *zap.Logger) *Session {
	return &Session{
		conn:     conn,
		claims:   claims,
		registry: registry,
		presence: presence,
		router:   router,
		logger:   logger,
		state:    stateConnecting,
	}
}

// Run reads frames until the transport closes, then performs disconnect
// cleanup. It must be called exactly once.
func (s *Session) Run(ctx context.Context) {
	defer s.handleClose(ctx)

	for {
		_, raw, err := s.conn.t.ReadMessage()
		if err != nil {
			return
		}

		payload, err := decodeInbound(raw)
		if err != nil {
			s.reply(messageErrorEvent(err.Error()))
			continue
		}

		s.dispatch(ctx, payload)
	}
}

// dispatch matches the closed set of inbound payloads exhaustively.
func (s *Session) dispatch(ctx context.Context, payload any) {
	switch p := payload.(type) {
	case *registerUserPayload:
		s.handleRegister(ctx, p)
	case *sendMessagePayload:
		s.handleSend(ctx, p)
	case *createChatPayload:
		s.handleCreateChat(ctx, p)
	case *editMessagePayload:
		s.handleEdit(ctx, p)
	case *deleteMessagePayload:
		s.handleDelete(ctx, p)
	default:
		// decodeInbound only produces the variants above
		s.logger.Error("unhandled inbound payload", zap.Any("payload", payload))
	}
}

// handleRegister binds the authenticated identity to this connection:
// registry first, so the presence broadcast sees an already-queryable
// connection, then presence.
func (s *Session) handleRegister(ctx context.Context, p *registerUserPayload) {
	if s.state != stateConnecting {
		s.reply(messageErrorEvent("already registered"))
		return
	}
	if p.UserID != "" && p.UserID != s.claims.UserID {
		s.reply(messageErrorEvent("user_id does not match the authenticated user"))
		return
	}

	s.userID = s.claims.UserID
	s.state = stateRegistered

	// The replaced connection, if any, is left to die on its own; its
	// unregister will be a no-op thanks to the compare-and-delete.
	s.registry.Register(s.userID, s.conn)
	s.presence.MarkOnline(ctx, s.userID)

	s.logger.Info("user registered", zap.String("user_id", s.userID))
}

func (s *Session) handleSend(ctx context.Context, p *sendMessagePayload) {
	if !s.requireRegistered(evMessageError) {
		return
	}
	p.UserID = s.userID

	if _, err := s.router.Send(ctx, *p); err != nil {
		s.logger.Warn("send failed", zap.String("user_id", s.userID), zap.String("chat_id", p.ChatID), zap.Error(err))
		s.reply(messageErrorEvent(errorReason(err)))
	}
}

func (s *Session) handleCreateChat(ctx context.Context, p *createChatPayload) {
	if !s.requireRegistered(evMessageError) {
		return
	}
	p.UserID = s.userID

	if _, err := s.router.CreateChat(ctx, *p); err != nil {
		s.logger.Warn("create chat failed", zap.String("user_id", s.userID), zap.Error(err))
		s.reply(messageErrorEvent(errorReason(err)))
	}
}

func (s *Session) handleEdit(ctx context.Context, p *editMessagePayload) {
	if !s.requireRegistered(evMessageUpdateError) {
		return
	}
	p.UserID = s.userID

	if _, err := s.router.Edit(ctx, *p); err != nil {
		s.reply(messageUpdateErrorEvent(errorReason(err)))
	}
}

func (s *Session) handleDelete(ctx context.Context, p *deleteMessagePayload) {
	if !s.requireRegistered(evMessageDeleteError) {
		return
	}
	p.UserID = s.userID

	if err := s.router.Delete(ctx, *p); err != nil {
		s.reply(messageDeleteErrorEvent(errorReason(err)))
		return
	}
	// deletion notifies only the requester
	s.reply(messageDeletedEvent(p.MessageID))
}

// handleClose runs the Disconnected transition. The user is marked offline
// only when the registry actually freed this connection's identity; a stale
// close racing a reconnect frees nothing and must not flip presence.
func (s *Session) handleClose(ctx context.Context) {
	defer func() { _ = s.conn.t.Close() }()

	prev := s.state
	s.state = stateDisconnected
	if prev != stateRegistered {
		return
	}

	if userID, ok := s.registry.Unregister(s.conn); ok {
		s.presence.MarkOffline(ctx, userID)
		s.logger.Info("user disconnected", zap.String("user_id", userID))
	}
}

func (s *Session) requireRegistered(errEvent string) bool {
	if s.state == stateRegistered {
		return true
	}
	switch errEvent {
	case evMessageUpdateError:
		s.reply(messageUpdateErrorEvent("not registered"))
	case evMessageDeleteError:
		s.reply(messageDeleteErrorEvent("not registered"))
	default:
		s.reply(messageErrorEvent("not registered"))
	}
	return false
}

func (s *Session) reply(ev Event) {
	if err := s.conn.Send(ev); err != nil {
		s.logger.Warn("reply failed", zap.Error(err))
	}
}

// errorReason maps store and validation errors to client-facing reasons.
func errorReason(err error) string {
	switch {
	case errors.Is(err, errEmptyContent), errors.Is(err, errBadMessageType):
		return err.Error()
	case errors.Is(err, data.ErrNotFound):
		return "not found"
	case errors.Is(err, data.ErrNotAuthorized):
		return "not allowed"
	default:
		return "internal error"
	}
}
