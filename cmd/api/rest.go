package main

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/auth"
	"github.com/krpetrov/svyaz/internal/data"
	"github.com/krpetrov/svyaz/internal/middleware"
	"github.com/krpetrov/svyaz/internal/normalize"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	User  *data.PublicUser `json:"user"`
	Token string           `json:"token"`
}

func (s *Server) handleRegisterUser(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = normalize.Name(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
	}
	if len(req.Password) < minPasswordLen {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}
	if !emailPattern.MatchString(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email address")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user, err := s.users.CreateUser(c.Context(), req.Name, req.Email, hashed)
	if err != nil {
		if errors.Is(err, data.ErrUserExists) {
			return fiber.NewError(fiber.StatusBadRequest, "user with this email already exists")
		}
		return err
	}

	token, _, err := s.jwt.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{User: user.Public(), Token: token})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	user, err := s.users.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		return err
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
	}

	token, _, err := s.jwt.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return err
	}

	return c.JSON(authResponse{User: user.Public(), Token: token})
}

// handleSearchUsers matches name or email by prefix. Liveness comes from the
// connection registry so a user who just connected shows online even before
// the persisted flag catches up.
func (s *Server) handleSearchUsers(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFromCtx(c)

	query := strings.TrimSpace(c.Params("query"))
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "search query is required")
	}

	users, err := s.users.Search(c.Context(), query, 20)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID.Hex() != claims.UserID {
			ids = append(ids, u.ID.Hex())
		}
	}
	statuses, err := s.presence.SnapshotStatus(c.Context(), ids)
	if err != nil {
		return err
	}

	results := make([]*data.PublicUser, 0, len(ids))
	for _, u := range users {
		if u.ID.Hex() == claims.UserID {
			continue
		}
		pub := u.Public()
		if st, ok := statuses[pub.UserID]; ok {
			pub.IsOnline = st.Online
			pub.LastSeen = st.LastSeen
		}
		if _, ok := s.registry.Lookup(pub.UserID); ok {
			pub.IsOnline = true
		}
		results = append(results, pub)
	}
	return c.JSON(results)
}

func (s *Server) handleGetUser(c *fiber.Ctx) error {
	user, err := s.users.GetUserByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(user.Public())
}

func (s *Server) handleUpdateUser(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFromCtx(c)
	id := c.Params("id")
	if id != claims.UserID {
		return fiber.NewError(fiber.StatusForbidden, "cannot modify another user")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = normalize.Name(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and email are required")
	}
	if !emailPattern.MatchString(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email address")
	}

	user, err := s.users.UpdateUser(c.Context(), id, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrUserExists):
			return fiber.NewError(fiber.StatusBadRequest, "user with this email already exists")
		case errors.Is(err, data.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(user.Public())
}

func (s *Server) handleDeleteUser(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFromCtx(c)
	id := c.Params("id")
	if id != claims.UserID {
		return fiber.NewError(fiber.StatusForbidden, "cannot delete another user")
	}

	if err := s.users.DeleteUser(c.Context(), id); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListChats(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFromCtx(c)
	userID := c.Params("userID")
	if userID != claims.UserID {
		return fiber.NewError(fiber.StatusForbidden, "cannot list another user's chats")
	}

	chats, err := s.chats.ListForUser(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(chats)
}

// handleCheckChat reports whether a private chat between two users already
// exists. The check is advisory; creation does not depend on it.
func (s *Server) handleCheckChat(c *fiber.Ctx) error {
	first, second := c.Params("firstID"), c.Params("secondID")

	chatID, exists, err := s.chats.FindPrivate(c.Context(), first, second)
	if err != nil {
		return err
	}
	resp := fiber.Map{"exists": exists}
	if exists {
		resp["chat_id"] = chatID
	}
	return c.JSON(resp)
}

// handleMessageHistory returns a chat's messages in chronological order and
// marks the other participants' messages as read by the requester.
func (s *Server) handleMessageHistory(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFromCtx(c)
	chatID := c.Params("chatID")

	chat, err := s.chats.Get(c.Context(), chatID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "chat not found")
		}
		return err
	}
	if !chat.HasParticipant(claims.UserID) {
		return fiber.NewError(fiber.StatusForbidden, "not a participant of this chat")
	}

	// Mark before fetching so the response already carries the read flags.
	if err := s.msgs.MarkRead(c.Context(), chatID, claims.UserID); err != nil {
		s.logger.Warn("mark read failed", zap.String("chat_id", chatID), zap.Error(err))
	}
	views, err := s.msgs.HistoryViews(c.Context(), chatID, 100)
	if err != nil {
		return err
	}
	return c.JSON(views)
}
